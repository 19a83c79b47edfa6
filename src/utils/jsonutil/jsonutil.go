package jsonutil

import (
	"bytes"
	"encoding/json"
)

// Convert re-shapes v into T through its JSON encoding. Used for values that
// arrive as interface{} (e.g. didChangeConfiguration settings).
func Convert[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

// IsNull reports whether raw is absent or the JSON literal null
func IsNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeStrict decodes raw into T rejecting unknown fields
func DecodeStrict[T any](raw []byte) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	err := dec.Decode(&out)
	return out, err
}
