// Package properties defines build property values and their stored text
// encoding. A property is a value plus the label of whatever supplied it
// (a scheduler name, a force-build form, a change hook). Rows in the
// buildset_properties table hold the encoded form of the pair.
package properties

import (
	"encoding/json"
	"fmt"
)

// Property is one build property: an arbitrary JSON-representable value
// and the label of its source.
type Property struct {
	Value  interface{}
	Source string
}

// Set maps property names to their values. Names are unique per buildset.
type Set map[string]Property

// MalformedPropertyError reports stored property text that cannot be
// decoded back into a [value, source] pair.
type MalformedPropertyError struct {
	Text string
	err  error
}

func (e *MalformedPropertyError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("properties: malformed property %q: %v", e.Text, e.err)
	}
	return fmt.Sprintf("properties: malformed property %q", e.Text)
}

func (e *MalformedPropertyError) Unwrap() error { return e.err }

// Encode serializes a property to the stored text form: a JSON array of
// exactly two elements, [value, source].
func Encode(p Property) (string, error) {
	data, err := json.Marshal([2]interface{}{p.Value, p.Source})
	if err != nil {
		return "", fmt.Errorf("properties: encode: %w", err)
	}
	return string(data), nil
}

// Decode parses the stored text form back into a property. It is the
// inverse of Encode over JSON-canonical values (nil, bool, float64,
// string, []interface{}, map[string]interface{}).
func Decode(text string) (Property, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal([]byte(text), &pair); err != nil {
		return Property{}, &MalformedPropertyError{Text: text, err: err}
	}
	if len(pair) != 2 {
		return Property{}, &MalformedPropertyError{
			Text: text,
			err:  fmt.Errorf("expected 2 elements, got %d", len(pair)),
		}
	}

	var p Property
	if err := json.Unmarshal(pair[0], &p.Value); err != nil {
		return Property{}, &MalformedPropertyError{Text: text, err: err}
	}
	if err := json.Unmarshal(pair[1], &p.Source); err != nil {
		return Property{}, &MalformedPropertyError{Text: text, err: err}
	}
	return p, nil
}
