package feed

import (
	"github.com/umputun/feedjson/pkg/xmltree"
)

// Dialect of a located feed
type Dialect string

// enum of supported dialects
const (
	DialectAtom Dialect = "atom"
	DialectRSS  Dialect = "rss"
)

// Container is the feed-level node and its entries.
// Meta is the node feed metadata is read from, the container itself for both dialects.
type Container struct {
	Dialect Dialect
	Meta    xmltree.Node
	Entries []xmltree.Node
}

// locateContainer finds the Atom feed root or the RSS channel in the document tree.
// Returns false if the document has neither.
func locateContainer(root xmltree.Node) (Container, bool) {
	if feed, ok := asNode(root["feed"]); ok {
		return Container{Dialect: DialectAtom, Meta: feed, Entries: asSequence(feed["entry"])}, true
	}

	if rss, ok := asNode(root["rss"]); ok {
		if channel, ok := asNode(rss["channel"]); ok {
			return Container{Dialect: DialectRSS, Meta: channel, Entries: asSequence(channel["item"])}, true
		}
	}

	return Container{}, false
}

// asSequence coerces a single element or a sequence of elements into a sequence of nodes.
// Elements parsed as plain text (e.g. an empty <item/>) become empty nodes so every source entry is kept.
func asSequence(v any) []xmltree.Node {
	if v == nil {
		return []xmltree.Node{}
	}

	seq, ok := v.([]any)
	if !ok {
		seq = []any{v}
	}

	res := make([]xmltree.Node, 0, len(seq))
	for _, el := range seq {
		n, ok := asNode(el)
		if !ok {
			n = xmltree.Node{}
		}
		res = append(res, n)
	}
	return res
}

// asNode returns v as a node if it is a mapping
func asNode(v any) (xmltree.Node, bool) {
	n, ok := v.(map[string]any)
	return n, ok && n != nil
}
