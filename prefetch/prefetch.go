// Package prefetch keeps speculative fetch results keyed by URL and decides
// whether they may back a navigation.
package prefetch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/route"
)

// Kind is how much of the destination a prefetch asked for.
type Kind uint8

const (
	// KindTemporary entries are created by navigations that had no
	// prefetch to use.
	KindTemporary Kind = iota
	// KindAuto prefetches stop at the nearest loading boundary.
	KindAuto
	// KindFull prefetches fetch the whole destination.
	KindFull
)

func (k Kind) String() string {
	switch k {
	case KindTemporary:
		return "temporary"
	case KindAuto:
		return "auto"
	case KindFull:
		return "full"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Status is the freshness of an entry at some instant.
type Status uint8

const (
	// StatusFresh entries are used as is.
	StatusFresh Status = iota
	// StatusReusable entries are used without refetching content.
	StatusReusable
	// StatusStale entries keep their tree but refetch leaf content.
	StatusStale
	// StatusExpired entries are discarded.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusReusable:
		return "reusable"
	case StatusStale:
		return "stale"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Entry is one prefetch.
type Entry struct {
	Fetch *fetch.Future
	Kind  Kind
	// PrefetchTime is when the fetch was issued.
	PrefetchTime time.Time
	// LastUsedTime is zero until a navigation consumed the entry.
	LastUsedTime time.Time
	// Tree is the route tree the fetch was issued against.
	Tree *route.Tree
}

// Used reports whether a navigation has consumed the entry.
func (e *Entry) Used() bool { return !e.LastUsedTime.IsZero() }

// Policy holds the freshness windows.
type Policy struct {
	// ReuseWindow is how long after issue or last use an entry is fresh.
	ReuseWindow time.Duration
	// TTL bounds reuse of used and full entries and the stale window of
	// auto entries.
	TTL time.Duration
}

// DefaultPolicy returns 30 seconds fresh and 5 minutes reusable.
func DefaultPolicy() Policy {
	return Policy{
		ReuseWindow: 30 * time.Second,
		TTL:         5 * time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.ReuseWindow <= 0 {
		p.ReuseWindow = d.ReuseWindow
	}
	if p.TTL <= 0 {
		p.TTL = d.TTL
	}
	return p
}

// Classify returns the status of e at now. Both windows are inclusive. The
// status never gets fresher as now advances.
func (p Policy) Classify(e *Entry, now time.Time) Status {
	p = p.withDefaults()

	ref := e.PrefetchTime
	if e.Used() {
		ref = e.LastUsedTime
	}
	if now.Sub(ref) <= p.ReuseWindow {
		return StatusFresh
	}

	if e.Used() {
		if now.Sub(e.LastUsedTime) <= p.TTL {
			return StatusReusable
		}
		return StatusExpired
	}

	if now.Sub(e.PrefetchTime) <= p.TTL {
		switch e.Kind {
		case KindFull:
			return StatusReusable
		case KindAuto:
			return StatusStale
		}
	}
	return StatusExpired
}

// Key returns the cache key of u: path and query, without the fragment.
func Key(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		return p + "?" + u.RawQuery
	}
	return p
}
