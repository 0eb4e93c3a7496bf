package routecache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/history"
	"github.com/hupe1980/routecache/patch"
	"github.com/hupe1980/routecache/reducer"
)

var (
	// ErrClosed is returned by operations on a closed Router.
	ErrClosed = errors.New("router closed")

	// ErrNoHistory is returned by Back and Forward without WithHistory.
	ErrNoHistory = errors.New("no history configured")

	// ErrHistoryBoundary is returned when Back or Forward has nowhere to go.
	ErrHistoryBoundary = errors.New("no history entry in that direction")

	// ErrInvalidInitialState is returned by New without an initial URL or
	// route tree.
	ErrInvalidInitialState = errors.New("initial state needs a URL and a route tree")

	// ErrStructuralMismatch is reported when a response does not fit the
	// current route tree.
	ErrStructuralMismatch = patch.ErrStructuralMismatch

	// ErrStalePatch is reported when a server patch was computed against an
	// older tree.
	ErrStalePatch = reducer.ErrStalePatch

	// ErrNetwork classifies failed fetches.
	ErrNetwork = fetch.ErrNetwork
)

// ErrInvalidURL indicates an href that cannot be parsed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidURL struct {
	Href  string
	cause error
}

func (e *ErrInvalidURL) Error() string {
	return fmt.Sprintf("invalid url %q: %v", e.Href, e.cause)
}

func (e *ErrInvalidURL) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, history.ErrNoEntry) {
		return fmt.Errorf("%w: %w", ErrHistoryBoundary, err)
	}
	if errors.Is(err, fetch.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
