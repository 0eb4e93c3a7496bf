package flight

import (
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// ErrInvalidEntry is returned when a wire entry cannot be decoded.
var ErrInvalidEntry = errors.New("invalid flight entry")

// MarshalJSON encodes e as [[seg, slot, seg, slot, ...], tree, content|null, head|null].
func (e Entry) MarshalJSON() ([]byte, error) {
	path := make([]any, 0, 2*len(e.Path))
	for _, s := range e.Path {
		path = append(path, segment.Wire(s.Segment), s.Parallel)
	}
	return gojson.Marshal([]any{path, e.Tree, body(e.Content), body(e.Head)})
}

// UnmarshalJSON decodes the wire form written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []gojson.RawMessage
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("%w: expected 4 elements, got %d", ErrInvalidEntry, len(raw))
	}

	var flat []gojson.RawMessage
	if err := gojson.Unmarshal(raw[0], &flat); err != nil {
		return fmt.Errorf("%w: path: %w", ErrInvalidEntry, err)
	}
	if len(flat)%2 != 0 {
		return fmt.Errorf("%w: path of odd length %d", ErrInvalidEntry, len(flat))
	}
	path := make(route.Path, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		seg, err := segment.Unmarshal(flat[i])
		if err != nil {
			return fmt.Errorf("%w: path step %d: %w", ErrInvalidEntry, i/2, err)
		}
		var slot string
		if err := gojson.Unmarshal(flat[i+1], &slot); err != nil {
			return fmt.Errorf("%w: path slot %d: %w", ErrInvalidEntry, i/2, err)
		}
		path = append(path, route.Step{Segment: seg, Parallel: slot})
	}

	var tree route.Tree
	if err := gojson.Unmarshal(raw[1], &tree); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	content, err := payload(raw[2])
	if err != nil {
		return err
	}
	head, err := payload(raw[3])
	if err != nil {
		return err
	}

	*e = Entry{Path: path, Tree: &tree, Content: content, Head: head}
	return nil
}

func body(p *Payload) *string {
	if p == nil {
		return nil
	}
	s := string(p.Body)
	return &s
}

func payload(raw gojson.RawMessage) (*Payload, error) {
	var s *string
	if err := gojson.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidEntry, err)
	}
	if s == nil {
		return nil, nil
	}
	return NewPayload(*s), nil
}

type wireResponse struct {
	Entries      []Entry `json:"f"`
	CanonicalURL string  `json:"c,omitempty"`
	Redirect     string  `json:"r,omitempty"`
}

// MarshalJSON encodes r with short field names.
func (r *Response) MarshalJSON() ([]byte, error) {
	entries := r.Entries
	if entries == nil {
		entries = []Entry{}
	}
	return gojson.Marshal(wireResponse{Entries: entries, CanonicalURL: r.CanonicalURL, Redirect: r.Redirect})
}

// UnmarshalJSON decodes the wire form written by MarshalJSON.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := gojson.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Response(w)
	return nil
}
