package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedjson/pkg/feed/mocks"
)

func TestService_Get(t *testing.T) {
	t.Run("normalized feed", func(t *testing.T) {
		fetcher := &mocks.FetcherMock{
			FetchFunc: func(ctx context.Context, feedURL string) (map[string]any, error) {
				return map[string]any{"rss": map[string]any{"channel": map[string]any{"title": "T", "item": map[string]any{"title": "I"}}}}, nil
			},
		}
		svc := NewService(fetcher)
		res, err := svc.Get(context.Background(), "https://example.com/rss")
		require.NoError(t, err)
		assert.Equal(t, "T", res.Metadata.Title)
		require.Len(t, res.Entries, 1)
		assert.Equal(t, "I", res.Entries[0].Title)

		require.Len(t, fetcher.FetchCalls(), 1)
		assert.Equal(t, "https://example.com/rss", fetcher.FetchCalls()[0].FeedURL)
	})

	t.Run("no url", func(t *testing.T) {
		fetcher := &mocks.FetcherMock{}
		_, err := NewService(fetcher).Get(context.Background(), "")
		require.ErrorIs(t, err, ErrNoURL)
		assert.Empty(t, fetcher.FetchCalls())
	})

	t.Run("no container is malformed", func(t *testing.T) {
		fetcher := &mocks.FetcherMock{
			FetchFunc: func(ctx context.Context, feedURL string) (map[string]any, error) {
				return map[string]any{"html": "x"}, nil
			},
		}
		_, err := NewService(fetcher).Get(context.Background(), "https://example.com")
		var mfe *MalformedFeedError
		require.ErrorAs(t, err, &mfe)
		assert.Contains(t, mfe.Reason, "no rss channel or atom feed")
	})

	t.Run("transport error passed through", func(t *testing.T) {
		fetcher := &mocks.FetcherMock{
			FetchFunc: func(ctx context.Context, feedURL string) (map[string]any, error) {
				return nil, &TransportError{URL: feedURL, Err: errors.New("connection refused")}
			},
		}
		_, err := NewService(fetcher).Get(context.Background(), "https://example.com")
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "connection refused", err.Error())
	})

	t.Run("caller context canceled", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		fetcher := &mocks.FetcherMock{
			FetchFunc: func(ctx context.Context, feedURL string) (map[string]any, error) {
				<-release
				return map[string]any{}, nil
			},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewService(fetcher).Get(ctx, "https://example.com")
		var te *TransportError
		require.ErrorAs(t, err, &te)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestService_ConcurrentSameURL(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	fetcher := &mocks.FetcherMock{
		FetchFunc: func(ctx context.Context, feedURL string) (map[string]any, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return map[string]any{"feed": map[string]any{"title": "shared"}}, nil
		},
	}
	svc := NewService(fetcher)

	const n = 5
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			res, err := svc.Get(context.Background(), "https://example.com/atom")
			if err == nil && res.Metadata.Title != "shared" {
				err = errors.New("unexpected title " + res.Metadata.Title)
			}
			errs <- err
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond) // let all callers join the flight
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(n))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))

	// nothing is kept after the flight completes, next request fetches again
	before := atomic.LoadInt32(&calls)
	_, err := svc.Get(context.Background(), "https://example.com/atom")
	require.NoError(t, err)
	assert.Equal(t, before+1, atomic.LoadInt32(&calls))
}
