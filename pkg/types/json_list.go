package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is an ordered list of strings persisted as a JSON array.
type StringList []string

// Value marshals the list into JSON text.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	buf, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON array into the list.
func (l *StringList) Scan(value interface{}) error {
	raw, err := scanBytes("string list", value)
	if err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	result := StringList{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*l = result
	return nil
}

// First returns the first entry or an empty string.
func (l StringList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// StringMap is a flat string map persisted as a JSON object.
type StringMap map[string]string

// Value marshals the map into JSON text.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON object into the map.
func (m *StringMap) Scan(value interface{}) error {
	raw, err := scanBytes("string map", value)
	if err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	result := make(StringMap)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

func scanBytes(kind string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("%s: unsupported scan type %T", kind, value)
	}
}
