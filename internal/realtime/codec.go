package realtime

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ParseEvent decodes a change notification of the form
// {"table":"orders","type":"UPDATE","new":{...},"old":{...}}.
func ParseEvent(payload []byte) (Event, error) {
	var e Event
	err := jx.DecodeBytes(payload).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "table":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "table")
			}
			e.Table = s
		case "type":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "type")
			}
			e.Type = EventType(s)
		case "new", "old":
			if d.Next() == jx.Null {
				return d.Null()
			}
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, key)
			}
			// Raw aliases the decoder buffer.
			buf := append(jx.Raw(nil), raw...)
			if key == "new" {
				e.New = buf
			} else {
				e.Old = buf
			}
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	if e.Table == "" || e.Type == "" {
		return Event{}, errors.New("decode event: table and type are required")
	}
	return e, nil
}

// StringField returns the string value of field name in the JSON object raw.
func StringField(raw jx.Raw, name string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var (
		out   string
		found bool
	)
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		if key != name || found || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		out, found = s, true
		return nil
	})
	if err != nil {
		return "", false
	}
	return out, found
}
