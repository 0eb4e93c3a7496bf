// Package rendercache holds rendered payloads for every segment instance of
// the route tree.
//
// A published Node is immutable: its fields are unexported and there are no
// setters. All writes go through a Tx, which clones the root-to-write path
// the first time it is touched and shares every other subtree with the
// base. A Node reachable from an earlier snapshot therefore never observes
// later writes.
package rendercache

import (
	"fmt"
	"slices"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// Status is the lifecycle state of a Node.
type Status uint8

const (
	// StatusEmpty nodes were created lazily and have no content yet.
	StatusEmpty Status = iota
	// StatusFetching nodes wait on a pending fetch.
	StatusFetching
	// StatusReady nodes hold rendered content.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusFetching:
		return "fetching"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Node is the cache entry of one segment instance.
type Node struct {
	status  Status
	fetch   *fetch.Future
	content *flight.Payload
	head    *flight.Payload
	slots   map[string]*slot
}

// slot maps cache keys to the nodes of one parallel route.
type slot struct {
	nodes map[string]*Node
}

// Empty returns a node with no content and no children.
func Empty() *Node {
	return &Node{status: StatusEmpty}
}

// NewReady returns a leaf node holding content and head.
func NewReady(content, head *flight.Payload) *Node {
	return &Node{status: StatusReady, content: content, head: head}
}

// Status returns the node status. A nil node is empty.
func (n *Node) Status() Status {
	if n == nil {
		return StatusEmpty
	}
	return n.status
}

// Fetch returns the pending fetch of a fetching node.
func (n *Node) Fetch() *fetch.Future {
	if n == nil {
		return nil
	}
	return n.fetch
}

// Content returns the rendered content.
func (n *Node) Content() *flight.Payload {
	if n == nil {
		return nil
	}
	return n.content
}

// Head returns the head content. Only leaves carry a head.
func (n *Node) Head() *flight.Payload {
	if n == nil {
		return nil
	}
	return n.head
}

// SlotKeys returns the parallel route keys present under n.
func (n *Node) SlotKeys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.slots))
	for k := range n.slots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CacheKeys returns the cache keys stored in the parallel route slot.
func (n *Node) CacheKeys(slot string) []string {
	if n == nil || n.slots[slot] == nil {
		return nil
	}
	s := n.slots[slot]
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Child returns the node for seg in the given parallel route, or nil.
func (n *Node) Child(slot string, seg segment.Segment) *Node {
	return n.ChildByKey(slot, segment.CacheKey(seg))
}

// ChildByKey is Child with a precomputed cache key.
func (n *Node) ChildByKey(slot, cacheKey string) *Node {
	if n == nil {
		return nil
	}
	s := n.slots[slot]
	if s == nil {
		return nil
	}
	return s.nodes[cacheKey]
}

// Lookup walks path from root and returns the node for seg in the slot the
// path ends at. An empty path returns root.
func Lookup(root *Node, path route.Path, seg segment.Segment) *Node {
	node := root
	for i, step := range path {
		node = node.ChildByKey(step.Parallel, childKey(path, i, seg))
		if node == nil {
			return nil
		}
	}
	return node
}

// childKey is the cache key of the node entered by step i of path.
func childKey(path route.Path, i int, target segment.Segment) string {
	if i+1 < len(path) {
		return segment.CacheKey(path[i+1].Segment)
	}
	return segment.CacheKey(target)
}

func copySlots(n *Node) map[string]*slot {
	if n == nil {
		return map[string]*slot{}
	}
	out := make(map[string]*slot, len(n.slots))
	for k, v := range n.slots {
		out[k] = v
	}
	return out
}
