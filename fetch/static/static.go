// Package static serves flight requests from responses published ahead of
// time into a blob store, e.g. by a static export.
//
// Each response is stored under a name derived from the request URL and
// mode, encoded with a codec and framed with block compression. The stored
// responses patch from the root, so the request tree is not consulted.
package static

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/routecache/blobstore"
	"github.com/hupe1980/routecache/codec"
	"github.com/hupe1980/routecache/fetch"
	"github.com/hupe1980/routecache/flight"
)

// ObjectName returns the blob name of the response for rawURL in mode.
func ObjectName(rawURL string, mode fetch.Mode) string {
	p, q, _ := strings.Cut(rawURL, "?")
	p = strings.Trim(p, "/")
	if p == "" {
		p = "index"
	}
	name := mode.String() + "/" + p
	if q != "" {
		name += "/_q/" + url.PathEscape(q)
	}
	return name + ".rsc"
}

// Option configures a Client or a Publisher.
type Option func(*options)

type options struct {
	codec       codec.Codec
	compression codec.Compression
	fallback    bool
}

// WithCodec sets the codec responses are stored with. Defaults to
// codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithCompression sets the compression of published responses. Defaults to
// zstd.
func WithCompression(c codec.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithNavigateFallback makes the Client answer prefetches with the full
// navigation response when no prefetch response was published.
func WithNavigateFallback() Option {
	return func(o *options) { o.fallback = true }
}

func newOptions(opts []Option) options {
	o := options{codec: codec.Default, compression: codec.CompressionZSTD}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client implements fetch.Client on top of a blob store.
type Client struct {
	store blobstore.Store
	opts  options
}

var _ fetch.Client = (*Client)(nil)

// NewClient creates a client reading from store.
func NewClient(store blobstore.Store, opts ...Option) *Client {
	return &Client{store: store, opts: newOptions(opts)}
}

// FetchTree implements fetch.Client.
func (c *Client) FetchTree(ctx context.Context, req *fetch.Request) (*flight.Response, error) {
	resp, err := c.load(ctx, ObjectName(req.URL, req.Mode))
	if err != nil && c.opts.fallback && req.Mode != fetch.ModeNavigate && errors.Is(err, blobstore.ErrNotFound) {
		resp, err = c.load(ctx, ObjectName(req.URL, fetch.ModeNavigate))
	}
	if err != nil {
		return nil, fmt.Errorf("static %s %s: %w", req.Mode, req.URL, err)
	}
	return resp, nil
}

func (c *Client) load(ctx context.Context, name string) (*flight.Response, error) {
	frame, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := codec.Decompress(frame)
	if err != nil {
		return nil, err
	}

	var resp flight.Response
	if err := c.opts.codec.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Page is one response to publish.
type Page struct {
	URL      string
	Mode     fetch.Mode
	Response *flight.Response
}

// DefaultPublishConcurrency bounds the uploads of PublishAll.
const DefaultPublishConcurrency = 8

// Publisher writes responses for a Client to read.
type Publisher struct {
	store blobstore.Store
	opts  options
}

// NewPublisher creates a publisher writing to store.
func NewPublisher(store blobstore.Store, opts ...Option) *Publisher {
	return &Publisher{store: store, opts: newOptions(opts)}
}

// Publish encodes and stores one response.
func (p *Publisher) Publish(ctx context.Context, page Page) error {
	data, err := p.opts.codec.Marshal(page.Response)
	if err != nil {
		return fmt.Errorf("encode %s: %w", page.URL, err)
	}
	frame, err := codec.Compress(data, p.opts.compression)
	if err != nil {
		return fmt.Errorf("compress %s: %w", page.URL, err)
	}
	return p.store.Put(ctx, ObjectName(page.URL, page.Mode), frame)
}

// PublishAll publishes pages concurrently and returns the first error.
func (p *Publisher) PublishAll(ctx context.Context, pages []Page) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultPublishConcurrency)

	for _, page := range pages {
		g.Go(func() error {
			return p.Publish(ctx, page)
		})
	}
	return g.Wait()
}
