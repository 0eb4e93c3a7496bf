package route

import (
	"errors"
	"fmt"
	"net/url"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/routecache/segment"
)

// ErrInvalidTree is returned when a wire tree cannot be decoded.
var ErrInvalidTree = errors.New("invalid route tree")

// MarshalJSON encodes t as [segment, {slot: tree}, url?, refresh?, isRootLayout?].
// Trailing optional elements are omitted when unset.
func (t *Tree) MarshalJSON() ([]byte, error) {
	children := t.Children
	if children == nil {
		children = map[string]*Tree{}
	}
	elems := []any{segment.Wire(t.Segment), children}

	switch {
	case t.RootLayout:
		elems = append(elems, nullable(t.URL), nullable(string(t.Refresh)), true)
	case t.Refresh != RefreshNone:
		elems = append(elems, nullable(t.URL), string(t.Refresh))
	case t.URL != "":
		elems = append(elems, t.URL)
	}
	return gojson.Marshal(elems)
}

// UnmarshalJSON decodes the wire form written by MarshalJSON.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw []gojson.RawMessage
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	if len(raw) < 2 || len(raw) > 5 {
		return fmt.Errorf("%w: expected 2 to 5 elements, got %d", ErrInvalidTree, len(raw))
	}

	seg, err := segment.Unmarshal(raw[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}

	children := map[string]*Tree{}
	if err := gojson.Unmarshal(raw[1], &children); err != nil {
		return fmt.Errorf("%w: children: %w", ErrInvalidTree, err)
	}

	out := Tree{Segment: seg, Children: children}
	if len(raw) > 2 {
		var u *string
		if err := gojson.Unmarshal(raw[2], &u); err != nil {
			return fmt.Errorf("%w: url: %w", ErrInvalidTree, err)
		}
		if u != nil {
			out.URL = *u
		}
	}
	if len(raw) > 3 {
		var r *string
		if err := gojson.Unmarshal(raw[3], &r); err != nil {
			return fmt.Errorf("%w: refresh: %w", ErrInvalidTree, err)
		}
		if r != nil {
			out.Refresh = Refresh(*r)
		}
	}
	if len(raw) > 4 {
		if err := gojson.Unmarshal(raw[4], &out.RootLayout); err != nil {
			return fmt.Errorf("%w: root layout: %w", ErrInvalidTree, err)
		}
	}

	*t = out
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EncodeHeader serializes t for transport in a request header.
func EncodeHeader(t *Tree) (string, error) {
	b, err := gojson.Marshal(t)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(b)), nil
}

// DecodeHeader parses a header value written by EncodeHeader.
func DecodeHeader(v string) (*Tree, error) {
	s, err := url.QueryUnescape(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	var t Tree
	if err := gojson.Unmarshal([]byte(s), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
