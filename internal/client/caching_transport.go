package client

import (
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingTransport returns an HTTP caching transport. Responses are cached
// on disk under cacheDir, or in memory when cacheDir is empty, and honour the
// server's Cache-Control and Vary headers. The transport must sit below the
// session transport so a response varying on Authorization is keyed by the
// token that fetched it.
func NewCachingTransport(cacheDir string) *httpcache.Transport {
	if cacheDir == "" {
		return httpcache.NewTransport(httpcache.NewMemoryCache())
	}

	return httpcache.NewTransport(diskcache.New(cacheDir))
}
