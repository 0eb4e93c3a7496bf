package segment

import (
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// ErrInvalidSegment is returned when a wire value is neither a string nor a
// [param, value, kind] triple.
var ErrInvalidSegment = errors.New("invalid segment")

// Wire returns the wire representation of s: a string for static segments,
// a three element array for dynamic ones.
func Wire(s Segment) any {
	switch x := s.(type) {
	case Static:
		return string(x)
	case Dynamic:
		return [3]string{x.Param, x.Value, string(x.Kind)}
	default:
		return nil
	}
}

// Marshal encodes s in its wire form.
func Marshal(s Segment) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidSegment)
	}
	return gojson.Marshal(Wire(s))
}

// Unmarshal decodes a segment from its wire form.
func Unmarshal(data []byte) (Segment, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := gojson.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSegment, err)
		}
		return Static(s), nil
	}

	var parts []string
	if err := gojson.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSegment, err)
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: dynamic segment needs 3 elements, got %d", ErrInvalidSegment, len(parts))
	}
	k := Kind(parts[2])
	if !k.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSegment, parts[2])
	}
	return Dynamic{Param: parts[0], Value: parts[1], Kind: k}, nil
}
