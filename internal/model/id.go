package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque server-issued identifier. Servers may send it as a JSON
// number or a JSON string; the form is remembered so it encodes the same way.
// IDs are comparable with ==.
type ID struct {
	value   string
	numeric bool
}

// NumericID builds an ID the server sent as a JSON number.
func NumericID(n int64) ID { return ID{value: strconv.FormatInt(n, 10), numeric: true} }

// StringID builds an ID the server sent as a JSON string.
func StringID(s string) ID { return ID{value: s} }

func (id ID) String() string { return id.value }

func (id ID) IsZero() bool { return id.value == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		return fmt.Errorf("id: empty value")
	case string(b) == "null":
		*id = ID{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = StringID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID{value: n.String(), numeric: true}
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
