package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/mmcdole/gofeed"

	"github.com/umputun/feedjson/pkg/xmltree"
)

// DefaultUserAgent is sent to feed sources unless configured otherwise
const DefaultUserAgent = "Mozilla/5.0"

// FetcherOpts defines HTTPFetcher parameters
type FetcherOpts struct {
	Timeout    time.Duration
	UserAgent  string
	MaxSize    int64 // max feed body size in bytes
	Retries    int   // total attempts, 1 means no retry
	RetryDelay time.Duration
}

// HTTPFetcher retrieves feed documents via HTTP and parses them into trees
type HTTPFetcher struct {
	client *http.Client
	opts   FetcherOpts
}

// NewHTTPFetcher creates a new feed fetcher, zero options are replaced with defaults
func NewHTTPFetcher(opts FetcherOpts) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = 10 * 1024 * 1024
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
}

// Fetch retrieves the feed at feedURL and returns its attribute-preserving tree.
// Network failures are reported as *TransportError, non-feed documents as *MalformedFeedError.
func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (xmltree.Node, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: fmt.Errorf("parse URL: %w", err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &TransportError{URL: feedURL, Err: fmt.Errorf("invalid URL: %s", feedURL)}
	}

	var body []byte
	retrier := repeater.NewBackoff(f.opts.Retries, f.opts.RetryDelay, repeater.WithMaxDelay(5*time.Second))
	err = retrier.Do(ctx, func() error {
		var fetchErr error
		body, fetchErr = f.get(ctx, feedURL)
		if fetchErr != nil {
			log.Printf("[DEBUG] fetch %s failed: %v", feedURL, fetchErr)
		}
		return fetchErr
	})
	if err != nil {
		return nil, &TransportError{URL: feedURL, Err: err}
	}

	// reject JSON feeds and html pages before building the tree
	feedType := gofeed.DetectFeedType(bytes.NewReader(body))
	if feedType != gofeed.FeedTypeRSS && feedType != gofeed.FeedTypeAtom {
		return nil, &MalformedFeedError{Reason: fmt.Sprintf("unsupported document type %q for %s", feedTypeName(feedType), feedURL)}
	}
	log.Printf("[DEBUG] fetched %s, %d bytes, %s", feedURL, len(body), feedTypeName(feedType))

	tree, err := xmltree.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &MalformedFeedError{Reason: fmt.Sprintf("parse %s: %v", feedURL, err)}
	}
	return tree, nil
}

// get retrieves the body of feedURL, limited to MaxSize bytes
func (f *HTTPFetcher) get(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)
	addBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxSize {
		return nil, fmt.Errorf("feed exceeds %d bytes", f.opts.MaxSize)
	}
	return body, nil
}

func feedTypeName(t gofeed.FeedType) string {
	switch t {
	case gofeed.FeedTypeRSS:
		return "rss"
	case gofeed.FeedTypeAtom:
		return "atom"
	case gofeed.FeedTypeJSON:
		return "json"
	default:
		return "unknown"
	}
}
