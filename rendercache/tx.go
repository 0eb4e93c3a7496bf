package rendercache

import (
	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
	"github.com/hupe1980/routecache/route"
	"github.com/hupe1980/routecache/segment"
)

// Tx is a copy-on-write edit of a cache tree.
//
// Only nodes and slots created by the transaction are ever mutated; the
// base tree is read, never written. A Tx is not safe for concurrent use.
type Tx struct {
	root  *Node
	nodes map[*Node]struct{}
	slots map[*slot]struct{}
	done  bool
}

// Begin starts a transaction on top of base. A nil base starts from an
// empty root.
func Begin(base *Node) *Tx {
	if base == nil {
		base = Empty()
	}
	return &Tx{
		root:  base,
		nodes: make(map[*Node]struct{}),
		slots: make(map[*slot]struct{}),
	}
}

// Root returns the current working root. It must be treated as read-only.
func (tx *Tx) Root() *Node { return tx.root }

// Dirty reports whether the transaction has written anything.
func (tx *Tx) Dirty() bool { return len(tx.nodes) > 0 }

// Commit ends the transaction and returns the new root. If nothing was
// written the base is returned.
func (tx *Tx) Commit() *Node {
	tx.check()
	tx.done = true
	tx.nodes, tx.slots = nil, nil
	return tx.root
}

func (tx *Tx) check() {
	if tx.done {
		panic("rendercache: use of committed transaction")
	}
}

func (tx *Tx) owns(n *Node) bool {
	_, ok := tx.nodes[n]
	return ok
}

func (tx *Tx) register(n *Node) *Node {
	if n.slots == nil {
		n.slots = map[string]*slot{}
	}
	tx.nodes[n] = struct{}{}
	return n
}

func (tx *Tx) clone(n *Node) *Node {
	return tx.register(&Node{
		status:  n.status,
		fetch:   n.fetch,
		content: n.content,
		head:    n.head,
		slots:   copySlots(n),
	})
}

func (tx *Tx) writableRoot() *Node {
	if !tx.owns(tx.root) {
		tx.root = tx.clone(tx.root)
	}
	return tx.root
}

// writableSlot returns n's slot for key, cloning or creating it as needed.
// n must be owned by the transaction.
func (tx *Tx) writableSlot(n *Node, key string) *slot {
	s := n.slots[key]
	if s != nil {
		if _, ok := tx.slots[s]; ok {
			return s
		}
	}
	ns := tx.newSlot(s)
	n.slots[key] = ns
	return ns
}

func (tx *Tx) newSlot(from *slot) *slot {
	ns := &slot{nodes: map[string]*Node{}}
	if from != nil {
		for k, v := range from.nodes {
			ns.nodes[k] = v
		}
	}
	tx.slots[ns] = struct{}{}
	return ns
}

// writableChild returns the node under cacheKey in s, cloning it if the
// transaction does not own it. s must be owned and the child must exist.
func (tx *Tx) writableChild(s *slot, cacheKey string) *Node {
	c := s.nodes[cacheKey]
	if tx.owns(c) {
		return c
	}
	nc := tx.clone(c)
	s.nodes[cacheKey] = nc
	return nc
}

// Reset replaces the whole tree with an empty root.
func (tx *Tx) Reset() {
	tx.check()
	tx.root = tx.register(Empty())
}

// FillRoot installs content at the root and lazily fills every position of
// patch below it. With wasPrefetched, existing descendants are kept instead
// of being replaced by empty placeholders.
func (tx *Tx) FillRoot(patch *route.Tree, content, head *flight.Payload, wasPrefetched bool) {
	tx.check()
	mustTree(patch)

	existing := tx.root
	r := tx.writableRoot()
	r.status = StatusReady
	r.fetch = nil
	r.content = content
	tx.fillLazy(r, existing, patch, head, wasPrefetched)
}

// FillNewSubTreeData installs content for patch in the slot addressed by
// path and lazily fills every position below it. Nothing is written when
// the path leaves the cached tree.
func (tx *Tx) FillNewSubTreeData(path route.Path, patch *route.Tree, content, head *flight.Payload, wasPrefetched bool) {
	tx.check()
	mustTree(patch)

	if len(path) == 0 {
		tx.FillRoot(patch, content, head, wasPrefetched)
		return
	}

	node := tx.writableRoot()
	for i, step := range path {
		if node.slots[step.Parallel] == nil {
			return
		}
		s := tx.writableSlot(node, step.Parallel)

		if i == len(path)-1 {
			ck := segment.CacheKey(patch.Segment)
			existing := s.nodes[ck]
			if existing != nil && tx.owns(existing) && existing.fetch != nil {
				// Still waiting on a fetch installed by this transaction.
				return
			}

			n := tx.register(&Node{status: StatusReady, content: content, slots: copySlots(existing)})
			if existing != nil {
				tx.invalidateByRouterState(n, patch)
			}
			tx.fillLazy(n, existing, patch, head, wasPrefetched)
			s.nodes[ck] = n
			return
		}

		ck := segment.CacheKey(path[i+1].Segment)
		if s.nodes[ck] == nil {
			return
		}
		node = tx.writableChild(s, ck)
	}
}

// fillLazy gives every position of t below n a node, reusing existing ones
// when wasPrefetched, and sets head on the leaves. n must be owned.
func (tx *Tx) fillLazy(n, existing *Node, t *route.Tree, head *flight.Payload, wasPrefetched bool) {
	if t.IsLeaf() {
		n.head = head
		return
	}

	for _, key := range t.Keys() {
		child := t.Children[key]
		ck := segment.CacheKey(child.Segment)

		if existing != nil {
			if es := existing.slots[key]; es != nil {
				ns := tx.newSlot(es)
				ec := es.nodes[ck]

				var cn *Node
				if wasPrefetched && ec != nil {
					cn = &Node{status: ec.status, fetch: ec.fetch, content: ec.content, slots: copySlots(ec)}
				} else {
					cn = &Node{status: StatusEmpty, slots: copySlots(ec)}
				}
				tx.register(cn)
				ns.nodes[ck] = cn
				tx.fillLazy(cn, ec, child, head, wasPrefetched)
				n.slots[key] = ns
				continue
			}
		}

		cn := tx.register(Empty())
		tx.writableSlot(n, key).nodes[ck] = cn
		tx.fillLazy(cn, nil, child, head, wasPrefetched)
	}
}

// invalidateByRouterState drops, for every slot of t, the entry of the
// segment t places there. Sibling entries are kept.
func (tx *Tx) invalidateByRouterState(n *Node, t *route.Tree) {
	for _, key := range t.Keys() {
		if n.slots[key] == nil {
			continue
		}
		delete(tx.writableSlot(n, key).nodes, segment.CacheKey(t.Children[key].Segment))
	}
}

// InvalidateBelow deletes the entry of seg from the slot addressed by path
// so the next render refetches it. Siblings are kept. An empty path drops
// every child of the root.
func (tx *Tx) InvalidateBelow(path route.Path, seg segment.Segment) {
	tx.check()

	node := tx.writableRoot()
	if len(path) == 0 {
		node.slots = map[string]*slot{}
		return
	}

	for i, step := range path {
		if node.slots[step.Parallel] == nil {
			return
		}
		s := tx.writableSlot(node, step.Parallel)
		if i == len(path)-1 {
			delete(s.nodes, segment.CacheKey(seg))
			return
		}
		ck := segment.CacheKey(path[i+1].Segment)
		if s.nodes[ck] == nil {
			return
		}
		node = tx.writableChild(s, ck)
	}
}

// FillDataProperty installs a fetching placeholder for fut at the first
// position along path (ending at seg) that the cache cannot serve yet.
//
// It reports bailed when the path leaves the cached tree, or, with
// bailOnParallelRoutes, when the root has more than one parallel route; in
// both cases the caller should not rely on the placeholder.
func (tx *Tx) FillDataProperty(path route.Path, seg segment.Segment, fut *fetch.Future, bailOnParallelRoutes bool) (bailed bool) {
	tx.check()
	if fut == nil {
		panic("rendercache: nil future")
	}
	if len(path) == 0 {
		return true
	}
	if r := tx.root; r.slots[path[0].Parallel] == nil || (bailOnParallelRoutes && len(r.slots) > 1) {
		return true
	}

	node := tx.writableRoot()
	for i, step := range path {
		if node.slots[step.Parallel] == nil {
			return true
		}
		s := tx.writableSlot(node, step.Parallel)
		ck := childKey(path, i, seg)
		child := s.nodes[ck]

		if i == len(path)-1 {
			if child == nil || child.fetch == nil || !tx.owns(child) {
				s.nodes[ck] = tx.placeholder(fut)
			}
			return false
		}
		if child == nil {
			s.nodes[ck] = tx.placeholder(fut)
			return false
		}
		node = tx.writableChild(s, ck)
	}
	return false
}

func (tx *Tx) placeholder(fut *fetch.Future) *Node {
	return tx.register(&Node{status: StatusFetching, fetch: fut})
}

func mustTree(t *route.Tree) {
	if t == nil {
		panic("rendercache: nil patch tree")
	}
}
