package feed

import (
	"github.com/umputun/feedjson/pkg/feed/types"
	"github.com/umputun/feedjson/pkg/xmltree"
)

// Normalize converts a parsed RSS or Atom document into the canonical feed schema.
// Returns nil result without error if the document has no recognizable feed container,
// and ErrNotMapping if root is not a mapping. Safe for concurrent use, root is never modified.
func Normalize(root any) (*types.NormalizedFeed, error) {
	doc, ok := asNode(root)
	if !ok {
		return nil, ErrNotMapping
	}

	c, ok := locateContainer(doc)
	if !ok {
		return nil, nil
	}

	res := &types.NormalizedFeed{
		Metadata: normalizeMetadata(c.Meta),
		Entries:  make([]types.FeedItem, 0, len(c.Entries)),
	}
	for _, entry := range c.Entries {
		res.Entries = append(res.Entries, normalizeItem(entry))
	}
	return res, nil
}

func normalizeMetadata(meta xmltree.Node) types.FeedMetadata {
	res := types.FeedMetadata{
		Title:       textOf(meta["title"]),
		Link:        resolveLink(meta["link"]),
		Description: textOf(meta["description"]),
	}
	if res.Description == "" {
		res.Description = textOf(meta["subtitle"])
	}

	for _, rule := range metaImageRules {
		if img := rule(meta); img != "" {
			res.Image = &img
			break
		}
	}
	return res
}

func normalizeItem(entry xmltree.Node) types.FeedItem {
	res := types.FeedItem{
		Title:       textOf(entry["title"]),
		Link:        resolveLink(entry["link"]),
		Description: textOf(entry["description"]),
		Category:    categories(entry["category"]),
	}

	var thumbnail string
	for _, rule := range entryThumbnailRules {
		if img := rule(entry); img != "" {
			thumbnail = img
		}
	}
	res.Thumbnail = optional(thumbnail)

	if pubDate := textOf(entry["pubDate"]); pubDate != "" {
		res.PubDate = &pubDate
	} else {
		res.PubDate = optional(textOf(entry["published"]))
	}
	return res
}

// categories always returns a sequence, a single category is wrapped
func categories(v any) []any {
	switch val := v.(type) {
	case nil:
		return []any{}
	case []any:
		return clone(val).([]any)
	default:
		return []any{clone(val)}
	}
}
