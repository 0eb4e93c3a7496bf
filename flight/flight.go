// Package flight defines the patch data a server streams to the router: an
// ordered list of entries, each grafting a partial route tree and its
// rendered payload onto the current page.
package flight

import (
	"github.com/hupe1980/routecache/route"
)

// Payload is a rendered body. Payloads are compared by identity: the cache
// treats two distinct *Payload values as different renders even if their
// bytes are equal.
type Payload struct {
	Body []byte
}

// NewPayload wraps s in a Payload.
func NewPayload(s string) *Payload {
	return &Payload{Body: []byte(s)}
}

func (p *Payload) String() string {
	if p == nil {
		return "<nil>"
	}
	return string(p.Body)
}

// Entry is one patch: the path to the parent slot, the subtree to merge,
// and the rendered content and head for its root segment.
//
// A nil Content makes the entry tree-only: the tree is merged but the cache
// is left alone.
type Entry struct {
	Path    route.Path
	Tree    *route.Tree
	Content *Payload
	Head    *Payload
}

// IsRoot reports whether the entry patches the root of the tree.
func (e Entry) IsRoot() bool { return len(e.Path) == 0 }

// TreeOnly reports whether e carries no rendered content.
func (e Entry) TreeOnly() bool { return e.Content == nil }

// Response is the result of one fetch.
type Response struct {
	Entries []Entry
	// CanonicalURL overrides the URL of the navigation when set, e.g. after
	// a server-side rewrite.
	CanonicalURL string
	// Redirect, when set, asks for a full page load of the given URL
	// instead of an incremental patch.
	Redirect string
}
