package prefetch

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestPolicy_Classify(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name  string
		entry Entry
		at    time.Duration
		want  Status
	}{
		{"fresh at issue", Entry{Kind: KindAuto, PrefetchTime: t0}, 0, StatusFresh},
		{"reuse window inclusive", Entry{Kind: KindAuto, PrefetchTime: t0}, 30 * time.Second, StatusFresh},
		{"auto stale after window", Entry{Kind: KindAuto, PrefetchTime: t0}, 31 * time.Second, StatusStale},
		{"auto stale at ttl", Entry{Kind: KindAuto, PrefetchTime: t0}, 5 * time.Minute, StatusStale},
		{"auto expired after ttl", Entry{Kind: KindAuto, PrefetchTime: t0}, 301 * time.Second, StatusExpired},
		{"full reusable after window", Entry{Kind: KindFull, PrefetchTime: t0}, time.Minute, StatusReusable},
		{"full expired after ttl", Entry{Kind: KindFull, PrefetchTime: t0}, 6 * time.Minute, StatusExpired},
		{"temporary expires after window", Entry{Kind: KindTemporary, PrefetchTime: t0}, 31 * time.Second, StatusExpired},
		{"used fresh from last use", Entry{Kind: KindAuto, PrefetchTime: t0, LastUsedTime: t0.Add(4 * time.Minute)}, 4*time.Minute + 10*time.Second, StatusFresh},
		{"used reusable", Entry{Kind: KindTemporary, PrefetchTime: t0, LastUsedTime: t0}, 2 * time.Minute, StatusReusable},
		{"used expired", Entry{Kind: KindFull, PrefetchTime: t0, LastUsedTime: t0}, 5*time.Minute + time.Second, StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(&tt.entry, t0.Add(tt.at)))
		})
	}
}

func TestPolicy_ClassifyMonotone(t *testing.T) {
	p := Policy{ReuseWindow: 10 * time.Second, TTL: time.Minute}

	entries := []Entry{
		{Kind: KindTemporary, PrefetchTime: t0},
		{Kind: KindAuto, PrefetchTime: t0},
		{Kind: KindFull, PrefetchTime: t0},
		{Kind: KindAuto, PrefetchTime: t0, LastUsedTime: t0.Add(5 * time.Second)},
	}
	for _, e := range entries {
		prev := StatusFresh
		for d := time.Duration(0); d <= 2*time.Minute; d += time.Second {
			s := p.Classify(&e, t0.Add(d))
			require.GreaterOrEqual(t, s, prev, "kind=%s at %s", e.Kind, d)
			prev = s
		}
		assert.Equal(t, StatusExpired, prev)
	}
}

func TestCache(t *testing.T) {
	c := NewCache(Policy{})
	assert.Equal(t, DefaultPolicy(), c.Policy())

	c.Set("/a", &Entry{Kind: KindAuto, PrefetchTime: t0})
	c.Set("/b", &Entry{Kind: KindFull, PrefetchTime: t0})
	c.Set("/c", &Entry{Kind: KindTemporary, PrefetchTime: t0})
	require.Equal(t, 3, c.Len())

	t.Run("stale then expired", func(t *testing.T) {
		assert.Equal(t, StatusStale, c.Classify("/a", t0.Add(31*time.Second)))
		assert.Equal(t, 1, c.Prune(t0.Add(31*time.Second)), "temporary entry expires first")

		_, ok := c.Get("/a")
		assert.True(t, ok)

		assert.Equal(t, 2, c.Prune(t0.Add(301*time.Second)))
		assert.Zero(t, c.Len())
		assert.Equal(t, StatusExpired, c.Classify("/a", t0))
	})

	t.Run("clear and delete", func(t *testing.T) {
		c.Set("/x", &Entry{PrefetchTime: t0})
		c.Set("/y", &Entry{PrefetchTime: t0})
		c.Delete("/x")
		assert.Equal(t, 1, c.Len())
		c.Clear()
		assert.Zero(t, c.Len())
	})
}

func TestCache_Upgrade(t *testing.T) {
	tests := []struct {
		name     string
		existing *Entry
		kind     Kind
		fetch    bool
		wantKind Kind
	}{
		{"missing", nil, KindAuto, true, 0},
		{"temporary adopts auto", &Entry{Kind: KindTemporary}, KindAuto, false, KindAuto},
		{"temporary adopts full", &Entry{Kind: KindTemporary}, KindFull, false, KindFull},
		{"auto to full refetches", &Entry{Kind: KindAuto}, KindFull, true, KindAuto},
		{"auto to auto", &Entry{Kind: KindAuto}, KindAuto, false, KindAuto},
		{"full to auto", &Entry{Kind: KindFull}, KindAuto, false, KindFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(DefaultPolicy())
			if tt.existing != nil {
				c.Set("/k", tt.existing)
			}

			assert.Equal(t, tt.fetch, c.Upgrade("/k", tt.kind))
			if tt.existing != nil {
				assert.Equal(t, tt.wantKind, tt.existing.Kind)
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a/b?x=1#top": "/a/b?x=1",
		"https://example.com":             "/",
		"/a%20b":                          "/a%20b",
		"/a#frag":                         "/a",
	}
	for raw, want := range tests {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, Key(u), raw)
	}
}
