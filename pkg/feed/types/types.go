package types

// NormalizedFeed represents a feed converted to the canonical schema
type NormalizedFeed struct {
	Metadata FeedMetadata `json:"metadata"`
	Entries  []FeedItem   `json:"entries"`
}

// FeedMetadata is the feed-level summary
type FeedMetadata struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	Description string  `json:"description"`
	Image       *string `json:"image"` // nil when the feed has no logo or thumbnail
}

// FeedItem represents a single entry of the feed.
// All fields are always serialized, absent optional values render as null.
type FeedItem struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	Description string  `json:"description"`
	PubDate     *string `json:"pubDate"` // raw publish timestamp as found in the feed
	Thumbnail   *string `json:"thumbnail"`
	Category    []any   `json:"category"` // plain strings or attributed objects, never nil
}

// Envelope is the JSON response of the feed endpoint
type Envelope struct {
	Status  int    `json:"status"`
	Feed    any    `json:"feed,omitempty"`
	Message string `json:"message,omitempty"`
	Hash    string `json:"hash,omitempty"`
}
