package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/umputun/feedjson/pkg/feed/types"
	"github.com/umputun/feedjson/pkg/xmltree"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher

// Fetcher retrieves a feed document and parses it into a tree
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (xmltree.Node, error)
}

// Service fetches feeds and normalizes them.
// Concurrent requests for the same URL share a single upstream fetch, nothing is kept after it completes.
type Service struct {
	fetcher Fetcher
	flight  singleflight.Group
}

// NewService makes a feed service on top of the fetcher
func NewService(fetcher Fetcher) *Service {
	return &Service{fetcher: fetcher}
}

// Get fetches feedURL and returns the normalized feed
func (s *Service) Get(ctx context.Context, feedURL string) (*types.NormalizedFeed, error) {
	tree, err := s.Raw(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	res, err := Normalize(tree)
	if err != nil {
		return nil, &MalformedFeedError{Reason: fmt.Sprintf("normalize %s: %v", feedURL, err)}
	}
	if res == nil {
		return nil, &MalformedFeedError{Reason: fmt.Sprintf("no rss channel or atom feed in %s", feedURL)}
	}
	return res, nil
}

// Raw fetches feedURL and returns the parsed document without normalization.
// The returned tree may be shared with concurrent callers and must not be modified.
func (s *Service) Raw(ctx context.Context, feedURL string) (xmltree.Node, error) {
	if feedURL == "" {
		return nil, ErrNoURL
	}

	// the shared fetch outlives any single caller, each caller still honors its own context
	ch := s.flight.DoChan(feedURL, func() (any, error) {
		return s.fetcher.Fetch(context.WithoutCancel(ctx), feedURL)
	})

	select {
	case <-ctx.Done():
		return nil, &TransportError{URL: feedURL, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tree, ok := res.Val.(xmltree.Node)
		if !ok || tree == nil {
			return nil, &MalformedFeedError{Reason: fmt.Sprintf("empty document for %s", feedURL)}
		}
		return tree, nil
	}
}
