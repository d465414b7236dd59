package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// SchemaVersion is the version written into every persisted blob.
const SchemaVersion = 0

// ErrUnsupportedVersion is returned when a blob was written by a newer schema.
var ErrUnsupportedVersion = errors.New("unsupported cart schema version")

// Marshal encodes items into the persisted layout:
//
//	{"state":{"items":[{"id","name","price","image_url","quantity"}]},"version":0}
//
// Prices are written as decimal strings so they survive a round trip exactly.
func Marshal(items []Item) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("state")
	e.ObjStart()
	e.FieldStart("items")
	encodeItems(e, items)
	e.ObjEnd()
	e.FieldStart("version")
	e.Int(SchemaVersion)
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

// Unmarshal decodes a persisted blob. Items without an id or with a
// quantity below one are dropped; repeated ids are merged.
func Unmarshal(data []byte) ([]Item, error) {
	var (
		items   []Item
		version int
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "state":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "items" {
					return d.Skip()
				}
				v, err := decodeItems(d)
				items = v
				return err
			})
		case "version":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			version = v
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if version > SchemaVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}
	return normalize(items), nil
}

// MarshalItems encodes items as a bare JSON array using the same item layout
// as Marshal.
func MarshalItems(items []Item) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encodeItems(e, items)
	return append([]byte(nil), e.Bytes()...)
}

// UnmarshalItems decodes a JSON array written by MarshalItems.
func UnmarshalItems(data []byte) ([]Item, error) {
	items, err := decodeItems(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	return normalize(items), nil
}

func encodeItems(e *jx.Encoder, items []Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.Str(it.Price.String())
		e.FieldStart("image_url")
		if it.ImageURL == "" {
			e.Null()
		} else {
			e.Str(it.ImageURL)
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func decodeItems(d *jx.Decoder) ([]Item, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var items []Item
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var it Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			it.ID = v
			return err
		case "name":
			v, err := d.Str()
			it.Name = v
			return err
		case "price":
			p, err := DecodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			it.Price = p
			return nil
		case "image_url":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			it.ImageURL = v
			return err
		case "quantity":
			v, err := d.Int()
			it.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return it, err
}

// DecodeDecimal reads a decimal encoded as a JSON string or number. Blobs
// written by older clients stored prices as JSON numbers.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", d.Next())
	}
}

func normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 || it.Price.IsNegative() {
			continue
		}
		if i, ok := seen[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		seen[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
