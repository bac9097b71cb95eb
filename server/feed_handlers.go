package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/umputun/feedjson/pkg/feed"
	"github.com/umputun/feedjson/pkg/feed/types"
)

// feedHandler fetches the feed passed in the feed query parameter and responds with the json envelope.
// The http status always mirrors the envelope status.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	feedURL := query.Get("feed")
	if feedURL == "" {
		renderEnvelope(w, r, types.Envelope{Status: http.StatusBadRequest, Message: feed.ErrNoURL.Error()})
		return
	}

	raw := isEnabled(query.Get("raw"))
	if raw && !s.opts.AllowRaw {
		renderEnvelope(w, r, types.Envelope{Status: http.StatusBadRequest, Message: "Raw mode is disabled"})
		return
	}

	ctx := r.Context()
	if s.feedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.feedTimeout)
		defer cancel()
	}

	var res any
	var err error
	if raw {
		res, err = s.feeds.Raw(ctx, feedURL)
	} else {
		var nf *types.NormalizedFeed
		if nf, err = s.feeds.Get(ctx, feedURL); err == nil {
			s.sanitize(nf)
			res = nf
		}
	}
	if err != nil {
		renderEnvelope(w, r, errorEnvelope(feedURL, err))
		return
	}

	env := types.Envelope{Status: http.StatusOK, Feed: res}
	if s.opts.IncludeHash || isEnabled(query.Get("hash")) {
		env.Hash = urlHash(feedURL)
	}
	renderEnvelope(w, r, env)
}

// errorEnvelope maps service errors to the response envelope
func errorEnvelope(feedURL string, err error) types.Envelope {
	var mfe *feed.MalformedFeedError
	switch {
	case errors.Is(err, feed.ErrNoURL):
		return types.Envelope{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.As(err, &mfe):
		log.Printf("[WARN] can't parse %s: %v", feedURL, err)
		return types.Envelope{Status: http.StatusInternalServerError, Message: feed.MalformedMessage}
	default:
		log.Printf("[WARN] can't fetch %s: %v", feedURL, err)
		return types.Envelope{Status: http.StatusInternalServerError, Message: err.Error()}
	}
}

// sanitize strips unsafe html from feed and entry descriptions if enabled
func (s *Server) sanitize(nf *types.NormalizedFeed) {
	if s.policy == nil || nf == nil {
		return
	}
	nf.Metadata.Description = s.policy.Sanitize(nf.Metadata.Description)
	for i := range nf.Entries {
		nf.Entries[i].Description = s.policy.Sanitize(nf.Entries[i].Description)
	}
}

func renderEnvelope(w http.ResponseWriter, r *http.Request, env types.Envelope) {
	renderJSON(w, r, env.Status, env)
}

// urlHash returns hex encoded sha256 of the feed url
func urlHash(feedURL string) string {
	sum := sha256.Sum256([]byte(feedURL))
	return hex.EncodeToString(sum[:])
}

func isEnabled(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
