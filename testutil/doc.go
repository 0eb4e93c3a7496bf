// Package testutil provides testing utilities for routecache.
//
// This package is intended for use in tests only. It provides builders for
// route trees, a fetcher whose futures are settled by hand and a manual
// clock.
//
// # Route Trees
//
//	tree := testutil.Tree("",
//		"children", testutil.Tree("a",
//			"children", testutil.Tree(testutil.Param("id", "1"),
//				"children", testutil.Page())))
//
// # Fetches
//
//	f := testutil.NewFakeFetcher()
//	fut := f.Fetch(&fetch.Request{URL: "/a"})
//	f.Last().Resolve(resp, nil)
//
// # Time
//
//	clock := testutil.NewClock(start)
//	clock.Advance(31 * time.Second)
package testutil
