package main

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/boardaid/internal/config"
	"github.com/nao1215/boardaid/internal/fetch"
)

// clientSet routes requests to a fetch client per configured site host.
// Every client shares one rate limiter.
type clientSet struct {
	fallback *fetch.Client
	byHost   map[string]*fetch.Client
}

func newClientSet(cfg *config.Config) (*clientSet, error) {
	limiter := fetch.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	base := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithLimiter(limiter),
		fetch.WithMaxPageSize(cfg.MaxPageSize),
	}
	if cfg.ProxyAddress != "" {
		base = append(base, fetch.WithProxy(cfg.ProxyAddress))
	}

	fallback, err := fetch.NewClient(append(base, fetch.WithUserAgent(cfg.UserAgent))...)
	if err != nil {
		return nil, err
	}
	cs := &clientSet{fallback: fallback, byHost: make(map[string]*fetch.Client, len(cfg.Sites))}
	for host := range cfg.Sites {
		site := cfg.SiteFor(host)
		opts := append(append([]fetch.Option{}, base...), fetch.WithUserAgent(site.UserAgent), fetch.WithCookie(site.Cookie))
		c, err := fetch.NewClient(opts...)
		if err != nil {
			return nil, err
		}
		cs.byHost[host] = c
	}
	return cs, nil
}

// For returns the client for the host of rawURL.
func (cs *clientSet) For(rawURL string) *fetch.Client {
	if u, err := url.Parse(rawURL); err == nil {
		if c, ok := cs.byHost[u.Host]; ok {
			return c
		}
	}
	return cs.fallback
}

func (cs *clientSet) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return cs.For(pageURL).FetchDocument(ctx, pageURL)
}

func (cs *clientSet) FetchBinary(ctx context.Context, fileURL string, maxSize int64) ([]byte, error) {
	return cs.For(fileURL).FetchBinary(ctx, fileURL, maxSize)
}

func (cs *clientSet) Status(ctx context.Context, pageURL string) (int, error) {
	return cs.For(pageURL).Status(ctx, pageURL)
}
