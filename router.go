package routecache

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/history"
	"github.com/hupe1980/routecache/patch"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/reducer"
	"github.com/hupe1980/routecache/render"
)

// Router owns the router state of one session.
//
// Dispatches are serialized. When an action suspends on a fetch, the
// Router waits for it on a goroutine and dispatches the continuation,
// unless a newer navigation started in the meantime.
//
// All methods are safe for concurrent use.
type Router struct {
	opts     options
	launcher *fetch.Launcher
	env      reducer.Env

	mu        sync.Mutex
	state     reducer.State
	seq       uint64
	syncedURL string
	warnings  []error
	changed   chan struct{}
	inflight  int
	idle      chan struct{}
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ render.Source = (*Router)(nil)

// New creates a router starting at initial that fetches through client.
func New(initial reducer.InitialConfig, client fetch.Client, opts ...Option) (*Router, error) {
	if initial.URL == nil || initial.Tree == nil {
		return nil, ErrInvalidInitialState
	}

	o := applyOptions(opts)
	if o.policy != nil {
		initial.Policy = *o.policy
	}

	mc := o.metricsCollector
	lopts := []fetch.LauncherOption{
		fetch.WithObserver(func(mode fetch.Mode, duration time.Duration, err error) {
			mc.RecordFetch(mode.String(), duration, err)
		}),
	}
	if o.queue != nil {
		lopts = append(lopts, fetch.WithQueue(o.queue))
	}
	if o.fetchTimeout > 0 {
		lopts = append(lopts, fetch.WithTimeout(o.fetchTimeout))
	}
	launcher := fetch.NewLauncher(client, lopts...)

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		opts:     o,
		launcher: launcher,
		env: reducer.Env{
			Fetcher:     launcher,
			Now:         o.now,
			Origin:      o.origin,
			Development: o.development,
		},
		state:   reducer.NewInitialState(initial),
		changed: make(chan struct{}),
		idle:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	r.syncedURL = r.state.CanonicalURL

	if o.history != nil {
		if err := r.seedHistory(ctx); err != nil {
			cancel()
			_ = launcher.Close()
			return nil, err
		}
	}

	return r, nil
}

func (r *Router) seedHistory(ctx context.Context) error {
	_, err := r.opts.history.Current(ctx)
	if errors.Is(err, history.ErrNoEntry) {
		return r.opts.history.Replace(ctx, history.Entry{URL: r.state.CanonicalURL, Tree: r.state.Tree})
	}
	return err
}

// Dispatch reduces a against the current state and returns the new state.
// Suspended work continues in the background; use Wait or Changed to
// observe it. After Close, Dispatch returns the last state unchanged.
func (r *Router) Dispatch(ctx context.Context, a reducer.Action) reducer.State {
	r.mu.Lock()
	if r.closed {
		s := r.state
		r.mu.Unlock()
		return s
	}
	s, hard := r.dispatchLocked(ctx, a)
	r.mu.Unlock()

	r.hardNavigate(hard)
	return s
}

// dispatchLocked starts a new dispatch. Navigations, refreshes and
// restores supersede all pending continuations.
func (r *Router) dispatchLocked(ctx context.Context, a reducer.Action) (reducer.State, string) {
	switch a.(type) {
	case reducer.Navigate, reducer.Refresh, reducer.Restore:
		r.seq++
	case reducer.FastRefresh:
		if r.env.Development {
			r.seq++
		}
	}
	return r.reduceLocked(ctx, a, r.seq)
}

func (r *Router) reduceLocked(ctx context.Context, a reducer.Action, seq uint64) (reducer.State, string) {
	ctx, span := r.opts.tracer.Start(ctx, "routecache.Dispatch",
		trace.WithAttributes(attribute.String("action", a.Name())))
	defer span.End()

	start := time.Now()
	prev := r.state
	out := reducer.Reduce(r.env, prev, a)
	duration := time.Since(start)

	r.state = out.State
	r.opts.metricsCollector.RecordDispatch(a.Name(), duration, out.Fallback != nil)
	if out.Pruned > 0 {
		r.opts.metricsCollector.RecordPrefetchPruned(out.Pruned)
	}
	r.opts.logger.LogDispatch(ctx, a, out, duration)
	for _, w := range out.Warnings {
		r.warnLocked(ctx, a, w)
	}

	span.SetAttributes(
		attribute.String("url", out.State.CanonicalURL),
		attribute.Bool("pending", out.Pending != nil),
	)

	var hard string
	switch {
	case out.Fallback != nil:
		f := out.Fallback
		r.opts.logger.LogFallback(ctx, f)
		span.SetAttributes(attribute.String("fallback", f.Reason.String()))
		if f.Err != nil {
			span.RecordError(f.Err)
			span.SetStatus(codes.Error, f.Err.Error())
		}
		hard = f.URL
	case isRestore(a):
		r.syncedURL = out.State.CanonicalURL
	case isPrefetch(a):
	case out.Pending == nil || out.State.Tree != prev.Tree:
		if err := r.syncHistoryLocked(ctx, out.State); err != nil {
			span.RecordError(err)
		}
	}

	if out.Pending != nil {
		r.awaitLocked(out.Pending, seq)
	}
	if changed(prev, out.State) {
		close(r.changed)
		r.changed = make(chan struct{})
	}
	return out.State, hard
}

func isRestore(a reducer.Action) bool {
	_, ok := a.(reducer.Restore)
	return ok
}

func isPrefetch(a reducer.Action) bool {
	_, ok := a.(reducer.Prefetch)
	return ok
}

func changed(prev, next reducer.State) bool {
	return prev.Tree != next.Tree ||
		prev.Cache != next.Cache ||
		prev.CanonicalURL != next.CanonicalURL ||
		prev.NextURL != next.NextURL ||
		prev.PushRef != next.PushRef ||
		prev.FocusScroll.Apply != next.FocusScroll.Apply ||
		prev.FocusScroll.HashFragment != next.FocusScroll.HashFragment
}

func (r *Router) syncHistoryLocked(ctx context.Context, s reducer.State) error {
	h := r.opts.history
	if h == nil {
		r.syncedURL = s.CanonicalURL
		return nil
	}

	e := history.Entry{URL: s.CanonicalURL, Tree: s.Tree}
	op := "replace"
	var err error
	if s.PushRef.PendingPush && s.CanonicalURL != r.syncedURL {
		op = "push"
		err = h.Push(ctx, e)
	} else {
		err = h.Replace(ctx, e)
	}
	if err != nil {
		r.opts.logger.LogHistory(ctx, op, e.URL, err)
		return err
	}
	r.syncedURL = s.CanonicalURL
	return nil
}

func (r *Router) warnLocked(ctx context.Context, a reducer.Action, err error) {
	r.opts.metricsCollector.RecordWarning(a.Name(), err)
	if errors.Is(err, ErrStalePatch) {
		r.opts.logger.LogStalePatch(ctx, err)
	} else {
		r.opts.logger.LogWarning(ctx, a, err)
	}

	if r.opts.maxWarnings <= 0 {
		return
	}
	if len(r.warnings) >= r.opts.maxWarnings {
		r.warnings = append(r.warnings[:0], r.warnings[1:]...)
	}
	r.warnings = append(r.warnings, err)
}

func (r *Router) awaitLocked(p *reducer.Suspension, seq uint64) {
	r.inflight++
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case <-p.Future.Done():
		case <-r.ctx.Done():
			r.mu.Lock()
			r.settleLocked()
			r.mu.Unlock()
			return
		}
		r.resume(p, seq)
	}()
}

func (r *Router) resume(p *reducer.Suspension, seq uint64) {
	r.mu.Lock()
	var hard string
	switch {
	case r.closed:
	case seq != r.seq:
		r.supersededLocked(p)
	default:
		_, hard = r.reduceLocked(r.ctx, p.Action, seq)
	}
	r.mu.Unlock()

	r.hardNavigate(hard)

	r.mu.Lock()
	r.settleLocked()
	r.mu.Unlock()
}

func (r *Router) settleLocked() {
	r.inflight--
	if r.inflight == 0 {
		close(r.idle)
		r.idle = make(chan struct{})
	}
}

// supersededLocked drops the continuation of a navigation that lost to a
// newer one. A late response that no longer fits the tree, or would rebind
// one of its dynamic segments, is reported.
func (r *Router) supersededLocked(p *reducer.Suspension) {
	var mismatch error
	if _, ok := p.Action.(reducer.Navigate); ok {
		if resp, err := p.Future.Result(); err == nil && resp != nil {
			mismatch = patch.Conflicts(r.state.Tree, resp.Entries)
		}
	}

	r.opts.metricsCollector.RecordSuperseded(mismatch != nil)
	r.opts.logger.LogSuperseded(r.ctx, p.Action, mismatch)
	if mismatch != nil {
		r.warnLocked(r.ctx, p.Action, mismatch)
	}
}

func (r *Router) hardNavigate(url string) {
	if url != "" && r.opts.hardNavigate != nil {
		r.opts.hardNavigate(url)
	}
}

// Navigate moves the router to href. By default the navigation pushes a
// history entry and applies scroll.
func (r *Router) Navigate(ctx context.Context, href string, opts ...NavigateOption) error {
	u, err := url.Parse(href)
	if err != nil {
		return &ErrInvalidURL{Href: href, cause: err}
	}

	a := reducer.Navigate{URL: u, Mode: reducer.ModePush, Scroll: true}
	for _, o := range opts {
		o(&a)
	}
	return r.dispatch(ctx, a)
}

// Prefetch fetches href into the prefetch cache without navigating.
func (r *Router) Prefetch(ctx context.Context, href string, kind prefetch.Kind) error {
	u, err := url.Parse(href)
	if err != nil {
		return &ErrInvalidURL{Href: href, cause: err}
	}
	return r.dispatch(ctx, reducer.Prefetch{URL: u, Kind: kind})
}

// PrefetchAll prefetches every href and waits until their responses have
// arrived. It returns the first fetch error.
func (r *Router) PrefetchAll(ctx context.Context, hrefs []string, kind prefetch.Kind) error {
	urls := make([]*url.URL, 0, len(hrefs))
	for _, href := range hrefs {
		u, err := url.Parse(href)
		if err != nil {
			return &ErrInvalidURL{Href: href, cause: err}
		}
		urls = append(urls, u)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		if err := r.dispatch(ctx, reducer.Prefetch{URL: u, Kind: kind}); err != nil {
			return errors.Join(err, g.Wait())
		}

		fut := r.prefetchFuture(prefetch.Key(u))
		if fut == nil {
			continue
		}
		g.Go(func() error {
			_, err := fut.Wait(ctx)
			return err
		})
	}

	return g.Wait()
}

func (r *Router) prefetchFuture(key string) *fetch.Future {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.state.Prefetch.Get(key)
	if !ok {
		return nil
	}
	return e.Fetch
}

// Refresh refetches the current page and replaces the render cache.
func (r *Router) Refresh(ctx context.Context) error {
	return r.dispatch(ctx, reducer.Refresh{})
}

// FastRefresh refetches the current page after a development rebuild. It
// does nothing unless the router was created with WithDevelopment.
func (r *Router) FastRefresh(ctx context.Context) error {
	return r.dispatch(ctx, reducer.FastRefresh{})
}

// Back moves to the previous history entry.
func (r *Router) Back(ctx context.Context) error {
	return r.traverse(ctx, func(h history.History) (history.Entry, error) { return h.Back(ctx) })
}

// Forward moves to the next history entry.
func (r *Router) Forward(ctx context.Context) error {
	return r.traverse(ctx, func(h history.History) (history.Entry, error) { return h.Forward(ctx) })
}

// traverse restores the entry move returns. Entries stored without a tree
// are navigated to again, replacing the entry.
func (r *Router) traverse(ctx context.Context, move func(history.History) (history.Entry, error)) error {
	if r.opts.history == nil {
		return ErrNoHistory
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	e, err := move(r.opts.history)
	if err != nil {
		r.mu.Unlock()
		return translateError(err)
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		r.mu.Unlock()
		return &ErrInvalidURL{Href: e.URL, cause: err}
	}

	var a reducer.Action = reducer.Restore{URL: u, Tree: e.Tree}
	if e.Tree == nil {
		r.syncedURL = e.URL
		a = reducer.Navigate{URL: u, Mode: reducer.ModeReplace}
	}
	_, hard := r.dispatchLocked(ctx, a)
	r.mu.Unlock()

	r.hardNavigate(hard)
	return nil
}

func (r *Router) dispatch(ctx context.Context, a reducer.Action) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	_, hard := r.dispatchLocked(ctx, a)
	r.mu.Unlock()

	r.hardNavigate(hard)
	return nil
}

// State returns the current state.
func (r *Router) State() reducer.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Changed returns a channel that is closed at the next state change.
func (r *Router) Changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

// Warnings returns the most recent recoverable problems, oldest first.
func (r *Router) Warnings() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.warnings...)
}

// Fetcher returns the fetcher lazy segment loads go through.
func (r *Router) Fetcher() reducer.Fetcher {
	return r.launcher
}

// Wait blocks until no continuation is pending or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.inflight == 0 {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels pending continuations and fetches and waits for their
// goroutines. It is safe to call more than once.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return r.launcher.Close()
}
