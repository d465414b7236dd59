package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    product.Product
		wantErr string
	}{
		{
			name: "full record",
			line: `{"name":" Argan Oil ","price":"800.50","category":"Haircare","image_url":"a.jpg","description":"d","stock":3,"featured":true,"sku":"x"}`,
			want: product.Product{Name: "Argan Oil", Price: decimal.RequireFromString("800.50"), Category: product.CategoryHaircare, ImageURL: "a.jpg", Description: "d", Stock: 3, Featured: true},
		},
		{
			name: "numeric price and nulls",
			line: `{"name":"Mist","price":1200,"category":"perfume","image_url":null,"description":null}`,
			want: product.Product{Name: "Mist", Price: decimal.NewFromInt(1200), Category: product.CategoryPerfume},
		},
		{name: "missing name", line: `{"price":1,"category":"shoes"}`, wantErr: "name is required"},
		{name: "missing price", line: `{"name":"x","category":"shoes"}`, wantErr: "price is required"},
		{name: "negative price", line: `{"name":"x","price":-1,"category":"shoes"}`, wantErr: "price must be greater than or equal to 0"},
		{name: "price with cents fraction", line: `{"name":"x","price":"10.005","category":"shoes"}`, wantErr: "at most 2 decimal places"},
		{name: "price too large", line: `{"name":"x","price":10000000000,"category":"shoes"}`, wantErr: "must not exceed 9999999999.99"},
		{name: "negative stock", line: `{"name":"x","price":1,"category":"shoes","stock":-4}`, wantErr: "stock must not be negative"},
		{name: "unknown category", line: `{"name":"x","price":1,"category":"jewelry"}`, wantErr: "invalid category"},
		{name: "missing category", line: `{"name":"x","price":1}`, wantErr: "category is required"},
		{name: "malformed", line: `{"name":`, wantErr: "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRecord([]byte(tt.line))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Price.Equal(got.Price), "price %s", got.Price)
			got.Price = tt.want.Price
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImportFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.jsonl.gz",
			`{"name":"Rose Parfum","price":4500,"category":"perfume"}`,
			`{"name":"Block Heels","price":3400,"category":"shoes"}`,
			`not json`,
			``,
		),
		writeGz(t, dir, "b.jsonl.gz",
			`{"name":"rose parfum","price":4400,"category":"perfume"}`,
			`{"name":"Rose Parfum","price":900,"category":"skincare"}`,
			`{"name":"Shea Butter","price":450,"category":"skincare"}`,
		),
	}

	filter := bloom.NewWithEstimates(1000, bloomFPR)
	filter.AddString(dedupeKey(product.Product{Name: "Shea Butter", Category: product.CategorySkincare}))

	var (
		mu      sync.Mutex
		created []string
		st      stats
	)
	err := importFiles(context.Background(), files, 2, filter, &st, func(_ context.Context, p *product.Product) error {
		mu.Lock()
		defer mu.Unlock()
		created = append(created, string(p.Category)+"/"+p.Name)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, created, 3)
	assert.Contains(t, created, "shoes/Block Heels")
	assert.Contains(t, created, "skincare/Rose Parfum")
	assert.EqualValues(t, 6, st.read.Load())
	assert.EqualValues(t, 1, st.invalid.Load())
	assert.EqualValues(t, 2, st.skipped.Load(), "case-insensitive duplicate and existing product")
	assert.EqualValues(t, 3, st.created.Load())
}

func TestImportFiles_CreateError(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeGz(t, dir, "a.jsonl.gz", `{"name":"x","price":1,"category":"shoes"}`)}

	var st stats
	err := importFiles(context.Background(), files, 1, bloom.NewWithEstimates(10, bloomFPR), &st,
		func(context.Context, *product.Product) error { return errors.New("db down") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestImportFiles_MissingFile(t *testing.T) {
	var st stats
	err := importFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")}, 1,
		bloom.NewWithEstimates(10, bloomFPR), &st,
		func(context.Context, *product.Product) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}
