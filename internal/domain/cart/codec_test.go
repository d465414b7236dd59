package cart

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Layout(t *testing.T) {
	blob := Marshal([]Item{
		{ID: "p1", Name: "Oud Refill", Price: decimal.RequireFromString("1250.50"), ImageURL: "oud.jpg", Quantity: 2},
		{ID: "p2", Name: "Edge Control", Price: decimal.RequireFromString("300"), Quantity: 1},
	})

	assert.JSONEq(t, `{
		"state": {"items": [
			{"id":"p1","name":"Oud Refill","price":"1250.5","image_url":"oud.jpg","quantity":2},
			{"id":"p2","name":"Edge Control","price":"300","image_url":null,"quantity":1}
		]},
		"version": 0
	}`, string(blob))
}

func TestMarshal_Empty(t *testing.T) {
	assert.JSONEq(t, `{"state":{"items":[]},"version":0}`, string(Marshal(nil)))
}

func TestUnmarshal_KeepsPrecision(t *testing.T) {
	price := decimal.RequireFromString("0.1000000000000000055511151231257827")
	items, err := Unmarshal(Marshal([]Item{{ID: "p", Name: "n", Price: price, Quantity: 1000}}))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.True(t, price.Equal(items[0].Price), "got %s", items[0].Price)
	assert.Equal(t, 1000, items[0].Quantity)
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		want    []Item
		wantErr error
		anyErr  bool
	}{
		{
			name: "numeric prices from older clients",
			blob: `{"state":{"items":[{"id":"a","name":"A","price":19.99,"image_url":null,"quantity":3}]},"version":0}`,
			want: []Item{{ID: "a", Name: "A", Price: decimal.RequireFromString("19.99"), Quantity: 3}},
		},
		{
			name: "unknown fields are skipped",
			blob: `{"state":{"items":[{"id":"a","name":"A","price":"1","quantity":1,"extra":{"x":[1,2]}}],"other":true},"version":0,"meta":"x"}`,
			want: []Item{{ID: "a", Name: "A", Price: decimal.RequireFromString("1"), Quantity: 1}},
		},
		{
			name: "invalid items are dropped",
			blob: `{"state":{"items":[
				{"id":"","name":"no id","price":"1","quantity":1},
				{"id":"z","name":"zero","price":"1","quantity":0},
				{"id":"n","name":"negative price","price":"-1","quantity":1},
				{"id":"ok","name":"ok","price":"2","quantity":2}
			]},"version":0}`,
			want: []Item{{ID: "ok", Name: "ok", Price: decimal.RequireFromString("2"), Quantity: 2}},
		},
		{
			name: "duplicate ids are merged",
			blob: `{"state":{"items":[
				{"id":"a","name":"A","price":"1","quantity":1},
				{"id":"a","name":"A","price":"1","quantity":2}
			]},"version":0}`,
			want: []Item{{ID: "a", Name: "A", Price: decimal.RequireFromString("1"), Quantity: 3}},
		},
		{
			name: "null items",
			blob: `{"state":{"items":null},"version":0}`,
			want: []Item{},
		},
		{
			name:    "newer schema is rejected",
			blob:    `{"state":{"items":[]},"version":1}`,
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:   "malformed json",
			blob:   `{"state":`,
			anyErr: true,
		},
		{
			name:   "price of wrong type",
			blob:   `{"state":{"items":[{"id":"a","name":"A","price":true,"quantity":1}]},"version":0}`,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unmarshal([]byte(tt.blob))
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				return
			case tt.anyErr:
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].ID, got[i].ID)
				assert.Equal(t, tt.want[i].Name, got[i].Name)
				assert.Equal(t, tt.want[i].Quantity, got[i].Quantity)
				assert.Equal(t, tt.want[i].ImageURL, got[i].ImageURL)
				assert.True(t, tt.want[i].Price.Equal(got[i].Price), "price %s != %s", tt.want[i].Price, got[i].Price)
			}
		})
	}
}

func TestMarshalItems(t *testing.T) {
	items := []Item{
		{ID: "p1", Name: "Shea", Price: decimal.RequireFromString("450.50"), Quantity: 2},
		{ID: "p2", Name: "Oud", Price: decimal.RequireFromString("1200"), ImageURL: "oud.jpg", Quantity: 1},
	}

	raw := MarshalItems(items)
	assert.JSONEq(t, `[
		{"id":"p1","name":"Shea","price":"450.5","image_url":null,"quantity":2},
		{"id":"p2","name":"Oud","price":"1200","image_url":"oud.jpg","quantity":1}
	]`, string(raw))

	got, err := UnmarshalItems(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, items[0].Price.Equal(got[0].Price))
	assert.Equal(t, "oud.jpg", got[1].ImageURL)

	_, err = UnmarshalItems([]byte(`{"id":"p1"}`))
	require.Error(t, err)
}

func TestDecodeDecimal(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: `"1250.50"`, want: "1250.5"},
		{input: `399.99`, want: "399.99"},
		{input: `1e3`, want: "1000"},
		{input: `"cheap"`, wantErr: true},
		{input: `true`, wantErr: true},
		{input: `null`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := DecodeDecimal(jx.DecodeStr(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
