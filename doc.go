// Package routecache is a client-side router cache for server-rendered,
// nested layouts.
//
// The router keeps three things in step: the route tree the server last
// agreed on, a copy-on-write cache of rendered segment payloads, and a
// session prefetch cache. Every change goes through a pure reducer
// (package reducer); the Router in this package serializes dispatches,
// awaits the fetches an action suspends on, and keeps browser-style
// history in sync.
//
// # Quick Start
//
//	r, _ := routecache.New(reducer.InitialConfig{
//	    URL:     initialURL,
//	    Tree:    initialTree,
//	    Content: flight.NewPayload(html),
//	}, client)
//	defer r.Close()
//
//	r.Prefetch(ctx, "/blog/2", prefetch.KindAuto)
//	r.Navigate(ctx, "/blog/2")
//	r.Wait(ctx)
//
//	frame, _ := render.New(r).RenderWait(ctx)
//
// The client is any fetch.Client. fetch/static serves responses exported
// to a blob store (local disk, S3 or MinIO).
//
// # History
//
// With WithHistory the router pushes or replaces an entry after every
// completed navigation. Back and Forward restore the stored tree without a
// fetch; entries without a tree are navigated to again.
//
// # Observability
//
//	r, _ := routecache.New(cfg, client,
//	    routecache.WithLogger(routecache.NewJSONLogger(slog.LevelInfo)),
//	    routecache.WithMetricsCollector(prommetrics.New(prometheus.DefaultRegisterer)),
//	)
//
// Every dispatch is traced with an OpenTelemetry span named
// "routecache.Dispatch".
package routecache
