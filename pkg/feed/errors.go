package feed

import (
	"errors"
	"fmt"
)

// ErrNoURL returned when a request carries no feed URL
var ErrNoURL = errors.New("No URL provided") //nolint:revive,stylecheck // message is part of the public response

// ErrNotMapping returned when the parsed document is not a mapping at all
var ErrNotMapping = errors.New("parsed document is not a mapping")

// MalformedMessage is the fixed message reported for documents without a recognizable feed
const MalformedMessage = "Failed to parse RSS feed"

// TransportError wraps failures reaching the feed source
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedFeedError reports a document that is neither RSS nor Atom
type MalformedFeedError struct {
	Reason string
}

func (e *MalformedFeedError) Error() string {
	return fmt.Sprintf("malformed feed: %s", e.Reason)
}
