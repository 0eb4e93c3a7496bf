package routecache

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/history"
	"github.com/hupe1980/routecache/prefetch"
	"github.com/hupe1980/routecache/reducer"
)

// DefaultMaxWarnings is how many recent warnings a Router keeps.
const DefaultMaxWarnings = 64

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	tracer           trace.Tracer
	policy           *prefetch.Policy
	queue            *fetch.Queue
	fetchTimeout     time.Duration
	history          history.History
	hardNavigate     func(url string)
	development      bool
	now              func() time.Time
	origin           string
	maxWarnings      int
}

// Option configures a Router.
type Option func(*options)

// WithLogger sets the logger. Defaults to NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink. Defaults to
// NoopMetricsCollector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithTracer sets the tracer dispatch spans are recorded with. Defaults to
// the global provider's "routecache" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithPrefetchPolicy overrides the freshness windows of the prefetch cache.
// It takes precedence over the policy in the initial config.
func WithPrefetchPolicy(p prefetch.Policy) Option {
	return func(o *options) {
		o.policy = &p
	}
}

// WithFetchQueue sets the queue prefetches wait in.
func WithFetchQueue(q *fetch.Queue) Option {
	return func(o *options) {
		o.queue = q
	}
}

// WithFetchTimeout bounds every flight round trip.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// WithHistory keeps h in sync with the router and enables Back and Forward.
func WithHistory(h history.History) Option {
	return func(o *options) {
		o.history = h
	}
}

// WithHardNavigate registers the hook called when the router gives up on
// client-side navigation and url must be loaded as a document.
func WithHardNavigate(fn func(url string)) Option {
	return func(o *options) {
		o.hardNavigate = fn
	}
}

// WithDevelopment enables FastRefresh.
func WithDevelopment(enabled bool) Option {
	return func(o *options) {
		o.development = enabled
	}
}

// WithClock sets the time source used for prefetch freshness.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithOrigin sets the scheme and host of the application, e.g.
// "https://example.com". Links to other origins are loaded as documents.
func WithOrigin(origin string) Option {
	return func(o *options) {
		o.origin = origin
	}
}

// WithMaxWarnings bounds how many recent warnings Warnings returns.
func WithMaxWarnings(n int) Option {
	return func(o *options) {
		o.maxWarnings = n
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		now:              time.Now,
		maxWarnings:      DefaultMaxWarnings,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("routecache")
	}
	return o
}

// NavigateOption configures a single navigation.
type NavigateOption func(*reducer.Navigate)

// WithReplace replaces the current history entry instead of pushing one.
func WithReplace() NavigateOption {
	return func(a *reducer.Navigate) { a.Mode = reducer.ModeReplace }
}

// WithoutScroll keeps focus and scroll where they are.
func WithoutScroll() NavigateOption {
	return func(a *reducer.Navigate) { a.Scroll = false }
}

// WithOptimistic renders a guessed tree while the server answers when
// nothing was prefetched for the target.
func WithOptimistic() NavigateOption {
	return func(a *reducer.Navigate) { a.ForceOptimistic = true }
}
