package feed

import (
	"github.com/umputun/feedjson/pkg/xmltree"
)

// linkRepr is one of the ways a feed encodes a link: plainLink, attributedLink or linkSequence
type linkRepr interface {
	isLink()
}

// plainLink is <link>https://...</link>
type plainLink string

// attributedLink is <link href="..." rel="..."/>, possibly with a nested href element or text
type attributedLink struct {
	href       string // @_href attribute
	nestedHref string // <href> child element
	rel        string
	hasRel     bool
	text       string
}

// linkSequence is a list of <link> elements, Atom style
type linkSequence []attributedLink

func (plainLink) isLink()      {}
func (attributedLink) isLink() {}
func (linkSequence) isLink()   {}

// parseLink converts a raw link value into its representation, nil if there is no usable link
func parseLink(v any) linkRepr {
	switch val := v.(type) {
	case string:
		return plainLink(val)
	case map[string]any:
		return toAttributedLink(val)
	case []any:
		seq := make(linkSequence, 0, len(val))
		for _, el := range val {
			switch e := el.(type) {
			case string:
				seq = append(seq, attributedLink{text: e})
			case map[string]any:
				seq = append(seq, toAttributedLink(e))
			}
		}
		return seq
	default:
		return nil
	}
}

func toAttributedLink(n xmltree.Node) attributedLink {
	rel, hasRel := n[xmltree.AttrPrefix+"rel"].(string)
	return attributedLink{
		href:       attrString(n, "href"),
		nestedHref: textOf(n["href"]),
		rel:        rel,
		hasRel:     hasRel,
		text:       textOf(n[xmltree.TextKey]),
	}
}

// url of a single link element, href attribute first
func (l attributedLink) url() string {
	switch {
	case l.href != "":
		return l.href
	case l.nestedHref != "":
		return l.nestedHref
	default:
		return l.text
	}
}

// pick selects the alternate link, or the first link without rel
func (s linkSequence) pick() string {
	for _, l := range s {
		if l.rel == "alternate" {
			return l.url()
		}
	}
	for _, l := range s {
		if !l.hasRel {
			return l.url()
		}
	}
	return ""
}

// resolveLink returns the canonical URL of a link value, "" if none can be resolved
func resolveLink(v any) string {
	switch l := parseLink(v).(type) {
	case plainLink:
		return string(l)
	case attributedLink:
		return l.url()
	case linkSequence:
		return l.pick()
	default:
		return ""
	}
}

// thumbnailRule extracts an image URL from an entry, "" if the source is not populated
type thumbnailRule func(n xmltree.Node) string

// entryThumbnailRules are evaluated in order, a later populated source overrides earlier ones
var entryThumbnailRules = []thumbnailRule{
	func(n xmltree.Node) string { return urlAttr(n["enclosure"]) },
	func(n xmltree.Node) string { return textOf(n["img"]) },
	func(n xmltree.Node) string { return urlAttr(n["media:thumbnail"]) },
	func(n xmltree.Node) string { return textOf(n["thumbnail"]) },
	func(n xmltree.Node) string { return urlAttr(n["media:content"]) },
	func(n xmltree.Node) string {
		group, ok := asNode(first(n["media:group"]))
		if !ok {
			return ""
		}
		return urlAttr(first(group["media:content"]))
	},
}

// metaImageRules are evaluated in order, the first populated source wins
var metaImageRules = []thumbnailRule{
	func(n xmltree.Node) string {
		img, ok := asNode(first(n["image"]))
		if !ok {
			return ""
		}
		return textOf(img["url"])
	},
	func(n xmltree.Node) string { return urlAttr(n["media:thumbnail"]) },
	func(n xmltree.Node) string { return textOf(n["thumbnail"]) },
}

// textOf returns the text of a plain or attributed element
func textOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		s, _ := val[xmltree.TextKey].(string)
		return s
	default:
		return ""
	}
}

// urlAttr returns the url attribute of an element, for a sequence the first element carrying one
func urlAttr(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return attrString(val, "url")
	case []any:
		for _, el := range val {
			if n, ok := asNode(el); ok {
				if u := attrString(n, "url"); u != "" {
					return u
				}
			}
		}
	}
	return ""
}

// first returns the first element of a sequence, or the value itself
func first(v any) any {
	if seq, ok := v.([]any); ok {
		if len(seq) == 0 {
			return nil
		}
		return seq[0]
	}
	return v
}

func attrString(n xmltree.Node, name string) string {
	s, _ := n[xmltree.AttrPrefix+name].(string)
	return s
}

// optional returns nil for an empty string
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// clone deep-copies a tree value so output never aliases the input document
func clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, el := range val {
			res[k] = clone(el)
		}
		return res
	case []any:
		res := make([]any, len(val))
		for i, el := range val {
			res[i] = clone(el)
		}
		return res
	default:
		return v
	}
}
