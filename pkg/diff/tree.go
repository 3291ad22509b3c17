package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromJSON decodes a JSON object into a tree. Numbers are kept as json.Number so
// no precision is lost; arrays are rejected because trees only hold keyed mappings.
func FromJSON(data []byte) (Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m Map
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("diff: decode tree: %w", err)
	}
	if m == nil {
		m = Map{}
	}
	if err := Check(m); err != nil {
		return nil, err
	}
	return m, nil
}

// FromValue builds the tree view of any JSON-serializable value.
func FromValue(v any) (Map, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("diff: encode value: %w", err)
	}
	return FromJSON(data)
}

// ToJSON renders a tree canonically: keys sorted, no insignificant whitespace.
func ToJSON(m Map) ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals a tree into v.
func Decode(m Map, v any) error {
	data, err := ToJSON(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
