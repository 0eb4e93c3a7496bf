package reducer

// restore adopts the tree and URL of a history entry verbatim. The cache is
// kept and nothing is fetched.
func restore(s State, a Restore) Outcome {
	if a.URL == nil || a.Tree == nil {
		panic("reducer: restore needs a URL and a tree")
	}
	s.Tree = a.Tree
	s.CanonicalURL = Href(a.URL)
	s.PushRef = PushRef{PreserveCustomHistoryState: true}
	s.NextURL = nextURL(a.Tree, a.URL.EscapedPath())
	return Outcome{State: s}
}
