// Package history stores the session history the router navigates with
// Back and Forward.
//
// Each entry records the URL and the route tree the router showed for it,
// so that traversal can restore the page without asking the server.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/routecache/route"
)

// ErrNoEntry is returned when the requested entry does not exist, e.g. Back
// on the first entry.
var ErrNoEntry = errors.New("history: no entry")

// Entry is one history entry.
type Entry struct {
	URL  string
	Tree *route.Tree
}

// Store records entries.
type Store interface {
	// Push appends e after the current entry, dropping every forward entry.
	Push(ctx context.Context, e Entry) error
	// Replace overwrites the current entry, or pushes e into an empty
	// history.
	Replace(ctx context.Context, e Entry) error
	// Current returns the entry at the cursor.
	Current(ctx context.Context) (Entry, error)
}

// Traverser moves the cursor.
type Traverser interface {
	Back(ctx context.Context) (Entry, error)
	Forward(ctx context.Context) (Entry, error)
}

// History is a traversable store.
type History interface {
	Store
	Traverser
}

// Memory is an in-process History. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	cursor  int
}

var _ History = (*Memory)(nil)

// NewMemory creates an empty history.
func NewMemory() *Memory {
	return &Memory{cursor: -1}
}

// Push implements Store.
func (m *Memory) Push(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries[:m.cursor+1], e)
	m.cursor++
	return nil
}

// Replace implements Store.
func (m *Memory) Replace(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 {
		m.entries = append(m.entries[:0], e)
		m.cursor = 0
		return nil
	}
	m.entries[m.cursor] = e
	return nil
}

// Current implements Store.
func (m *Memory) Current(_ context.Context) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 {
		return Entry{}, ErrNoEntry
	}
	return m.entries[m.cursor], nil
}

// Back implements Traverser.
func (m *Memory) Back(_ context.Context) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor <= 0 {
		return Entry{}, ErrNoEntry
	}
	m.cursor--
	return m.entries[m.cursor], nil
}

// Forward implements Traverser.
func (m *Memory) Forward(_ context.Context) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor+1 >= len(m.entries) {
		return Entry{}, ErrNoEntry
	}
	m.cursor++
	return m.entries[m.cursor], nil
}

// Len returns the number of entries, including forward ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
