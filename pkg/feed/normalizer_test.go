package feed

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedjson/pkg/feed/types"
	"github.com/umputun/feedjson/pkg/xmltree"
)

func strPtr(s string) *string { return &s }

func TestNormalize_RSSEndToEnd(t *testing.T) {
	doc := `<rss><channel><title>T</title><link>L</link>` +
		`<item><title>I</title><link>IL</link><category>C1</category><category>C2</category></item>` +
		`</channel></rss>`
	tree, err := xmltree.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	res, err := Normalize(tree)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, types.FeedMetadata{Title: "T", Link: "L", Description: "", Image: nil}, res.Metadata)
	assert.Equal(t, []types.FeedItem{
		{Title: "I", Link: "IL", Description: "", PubDate: nil, Thumbnail: nil, Category: []any{"C1", "C2"}},
	}, res.Entries)
}

func TestNormalize_AtomSingleEntry(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Atom Feed</title>
	<subtitle>about things</subtitle>
	<link href="https://example.com/feed.xml" rel="self"/>
	<link href="https://example.com/" rel="alternate"/>
	<entry>
		<title>Entry 1</title>
		<link href="https://example.com/entry1"/>
		<published>2023-07-03T10:00:00Z</published>
		<category term="go"/>
	</entry>
</feed>`
	tree, err := xmltree.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	res, err := Normalize(tree)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "Atom Feed", res.Metadata.Title)
	assert.Equal(t, "https://example.com/", res.Metadata.Link)
	assert.Equal(t, "about things", res.Metadata.Description)
	assert.Nil(t, res.Metadata.Image)

	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.Equal(t, "Entry 1", entry.Title)
	assert.Equal(t, "https://example.com/entry1", entry.Link)
	assert.Equal(t, strPtr("2023-07-03T10:00:00Z"), entry.PubDate)
	assert.Equal(t, []any{map[string]any{"@_term": "go"}}, entry.Category)
}

func TestNormalize_NoContainer(t *testing.T) {
	tbl := []struct {
		name string
		root any
	}{
		{"empty", map[string]any{}},
		{"html page", map[string]any{"html": map[string]any{"body": "x"}}},
		{"rdf", map[string]any{"rdf:RDF": map[string]any{"channel": map[string]any{"title": "x"}}}},
		{"rss without channel", map[string]any{"rss": map[string]any{"@_version": "2.0"}}},
		{"rss as text", map[string]any{"rss": "junk"}},
		{"feed as text", map[string]any{"feed": ""}},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(tt.root)
			require.NoError(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestNormalize_NotMapping(t *testing.T) {
	for _, root := range []any{nil, "text", []any{map[string]any{}}, 42} {
		res, err := Normalize(root)
		require.ErrorIs(t, err, ErrNotMapping)
		assert.Nil(t, res)
	}
}

func TestNormalize_EmptyFeeds(t *testing.T) {
	t.Run("rss channel without items", func(t *testing.T) {
		res, err := Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{"title": "T"}}})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.NotNil(t, res.Entries)
		assert.Empty(t, res.Entries)
	})

	t.Run("atom feed without entries", func(t *testing.T) {
		res, err := Normalize(map[string]any{"feed": map[string]any{"title": "T"}})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "T", res.Metadata.Title)
		assert.Empty(t, res.Entries)
	})
}

func TestNormalize_MetadataLink(t *testing.T) {
	tbl := []struct {
		name string
		link any
		want string
	}{
		{"alternate wins", []any{
			map[string]any{"@_href": "a", "@_rel": "self"},
			map[string]any{"@_href": "b", "@_rel": "alternate"},
		}, "b"},
		{"no rel fallback", []any{map[string]any{"@_href": "a"}}, "a"},
		{"no rel after self", []any{
			map[string]any{"@_href": "a", "@_rel": "self"},
			map[string]any{"@_href": "c"},
		}, "c"},
		{"only self", []any{map[string]any{"@_href": "a", "@_rel": "self"}}, ""},
		{"plain string in sequence", []any{"https://example.com", map[string]any{"@_href": "a", "@_rel": "self"}}, "https://example.com"},
		{"single attributed", map[string]any{"@_href": "x", "@_rel": "self"}, "x"},
		{"single with text", map[string]any{"@_type": "text/html", "#text": "y"}, "y"},
		{"plain string", "https://example.com", "https://example.com"},
		{"absent", nil, ""},
		{"empty sequence", []any{}, ""},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			channel := map[string]any{"title": "T"}
			if tt.link != nil {
				channel["link"] = tt.link
			}
			res, err := Normalize(map[string]any{"rss": map[string]any{"channel": channel}})
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, tt.want, res.Metadata.Link)
		})
	}
}

func TestNormalize_MetadataImage(t *testing.T) {
	tbl := []struct {
		name string
		meta map[string]any
		want *string
	}{
		{"image url", map[string]any{"image": map[string]any{"url": "i", "title": "x"}}, strPtr("i")},
		{"media thumbnail", map[string]any{"media:thumbnail": map[string]any{"@_url": "m"}}, strPtr("m")},
		{"plain thumbnail", map[string]any{"thumbnail": "p"}, strPtr("p")},
		{"image url first", map[string]any{
			"image":           map[string]any{"url": "i"},
			"media:thumbnail": map[string]any{"@_url": "m"},
			"thumbnail":       "p",
		}, strPtr("i")},
		{"image without url falls through", map[string]any{
			"image":     map[string]any{"title": "x"},
			"thumbnail": "p",
		}, strPtr("p")},
		{"empty image element", map[string]any{"image": ""}, nil},
		{"none", map[string]any{}, nil},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(map[string]any{"rss": map[string]any{"channel": tt.meta}})
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, tt.want, res.Metadata.Image)
		})
	}
}

func TestNormalize_MetadataDescription(t *testing.T) {
	res, err := Normalize(map[string]any{"feed": map[string]any{
		"subtitle": map[string]any{"@_type": "html", "#text": "sub"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "sub", res.Metadata.Description)

	res, err = Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{
		"description": "desc", "subtitle": "sub",
	}}})
	require.NoError(t, err)
	assert.Equal(t, "desc", res.Metadata.Description)
}

func TestNormalize_ItemLink(t *testing.T) {
	tbl := []struct {
		name string
		link any
		want string
	}{
		{"plain", "https://example.com/1", "https://example.com/1"},
		{"href attribute", map[string]any{"@_href": "h"}, "h"},
		{"nested href", map[string]any{"href": "n"}, "n"},
		{"attribute preferred over nested", map[string]any{"@_href": "h", "href": "n"}, "h"},
		{"atom sequence", []any{
			map[string]any{"@_href": "r", "@_rel": "replies"},
			map[string]any{"@_href": "a", "@_rel": "alternate"},
		}, "a"},
		{"absent", nil, ""},
		{"object without href", map[string]any{"@_rel": "self"}, ""},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			item := map[string]any{"title": "x"}
			if tt.link != nil {
				item["link"] = tt.link
			}
			res, err := Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{"item": item}}})
			require.NoError(t, err)
			require.Len(t, res.Entries, 1)
			assert.Equal(t, tt.want, res.Entries[0].Link)
		})
	}
}

func TestNormalize_ItemThumbnail(t *testing.T) {
	tbl := []struct {
		name string
		item map[string]any
		want *string
	}{
		{"enclosure", map[string]any{"enclosure": map[string]any{"@_url": "x"}}, strPtr("x")},
		{"media thumbnail overrides enclosure", map[string]any{
			"enclosure":       map[string]any{"@_url": "x"},
			"media:thumbnail": map[string]any{"@_url": "y"},
		}, strPtr("y")},
		{"img", map[string]any{"img": "i"}, strPtr("i")},
		{"plain thumbnail overrides media thumbnail", map[string]any{
			"media:thumbnail": map[string]any{"@_url": "y"},
			"thumbnail":       "t",
		}, strPtr("t")},
		{"media content", map[string]any{"media:content": map[string]any{"@_url": "c", "@_medium": "image"}}, strPtr("c")},
		{"media content sequence", map[string]any{"media:content": []any{
			map[string]any{"@_medium": "video"},
			map[string]any{"@_url": "c2"},
		}}, strPtr("c2")},
		{"media group first content", map[string]any{"media:group": map[string]any{
			"media:content": []any{map[string]any{"@_url": "g1"}, map[string]any{"@_url": "g2"}},
		}}, strPtr("g1")},
		{"media group single content", map[string]any{"media:group": map[string]any{
			"media:content": map[string]any{"@_url": "g"},
		}}, strPtr("g")},
		{"media group wins over all", map[string]any{
			"enclosure":     map[string]any{"@_url": "x"},
			"img":           "i",
			"media:content": map[string]any{"@_url": "c"},
			"media:group":   map[string]any{"media:content": map[string]any{"@_url": "g"}},
		}, strPtr("g")},
		{"unpopulated later source keeps earlier", map[string]any{
			"enclosure":       map[string]any{"@_url": "x"},
			"media:thumbnail": map[string]any{"@_width": "10"},
			"media:group":     "",
		}, strPtr("x")},
		{"enclosure sequence", map[string]any{"enclosure": []any{
			map[string]any{"@_url": "e1"}, map[string]any{"@_url": "e2"},
		}}, strPtr("e1")},
		{"enclosure as text", map[string]any{"enclosure": "broken"}, nil},
		{"none", map[string]any{}, nil},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{"item": tt.item}}})
			require.NoError(t, err)
			require.Len(t, res.Entries, 1)
			assert.Equal(t, tt.want, res.Entries[0].Thumbnail)
		})
	}
}

func TestNormalize_ItemPubDate(t *testing.T) {
	tbl := []struct {
		name string
		item map[string]any
		want *string
	}{
		{"rss", map[string]any{"pubDate": "Mon, 03 Jul 2023 10:00:00 GMT"}, strPtr("Mon, 03 Jul 2023 10:00:00 GMT")},
		{"atom", map[string]any{"published": "2023-07-03T10:00:00Z"}, strPtr("2023-07-03T10:00:00Z")},
		{"pubDate first", map[string]any{"pubDate": "p", "published": "q"}, strPtr("p")},
		{"raw text untouched", map[string]any{"pubDate": "yesterday-ish"}, strPtr("yesterday-ish")},
		{"absent", map[string]any{}, nil},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(map[string]any{"feed": map[string]any{"entry": tt.item}})
			require.NoError(t, err)
			require.Len(t, res.Entries, 1)
			assert.Equal(t, tt.want, res.Entries[0].PubDate)
		})
	}
}

func TestNormalize_ItemCategory(t *testing.T) {
	tbl := []struct {
		name     string
		category any
		want     []any
	}{
		{"absent", nil, []any{}},
		{"single string", "C", []any{"C"}},
		{"single attributed", map[string]any{"@_domain": "d", "#text": "C"}, []any{map[string]any{"@_domain": "d", "#text": "C"}}},
		{"sequence", []any{"A", map[string]any{"@_term": "B"}}, []any{"A", map[string]any{"@_term": "B"}}},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			item := map[string]any{}
			if tt.category != nil {
				item["category"] = tt.category
			}
			res, err := Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{"item": item}}})
			require.NoError(t, err)
			require.Len(t, res.Entries, 1)
			assert.NotNil(t, res.Entries[0].Category)
			assert.Equal(t, tt.want, res.Entries[0].Category)
		})
	}
}

func TestNormalize_ItemTextFields(t *testing.T) {
	item := map[string]any{
		"title":       map[string]any{"@_type": "html", "#text": "Hello"},
		"description": "<p>body</p>",
		"content":     "ignored, no fallback",
	}
	res, err := Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{"item": []any{item, ""}}}})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "Hello", res.Entries[0].Title)
	assert.Equal(t, "<p>body</p>", res.Entries[0].Description)

	// empty <item/> still yields an entry with defaults
	assert.Equal(t, types.FeedItem{Category: []any{}}, res.Entries[1])
}

func TestNormalize_UnescapedHTMLDescription(t *testing.T) {
	doc := `<rss><channel><description>About <i>us</i></description>` +
		`<item><title>I</title><description>Hello <b>bold</b> world</description></item></channel></rss>`
	tree, err := xmltree.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	res, err := Normalize(tree)
	require.NoError(t, err)
	assert.Equal(t, "About <i>us</i>", res.Metadata.Description)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Hello <b>bold</b> world", res.Entries[0].Description)
}

func TestNormalize_AllKeysPresent(t *testing.T) {
	res, err := Normalize(map[string]any{"rss": map[string]any{"channel": map[string]any{"item": map[string]any{}}}})
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	meta := out["metadata"].(map[string]any)
	for _, k := range []string{"title", "link", "description", "image"} {
		assert.Contains(t, meta, k)
	}
	entries := out["entries"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	for _, k := range []string{"title", "link", "description", "pubDate", "thumbnail", "category"} {
		assert.Contains(t, entry, k)
	}
	assert.Equal(t, []any{}, entry["category"])
	assert.Nil(t, entry["thumbnail"])
	assert.Nil(t, entry["pubDate"])
}

func TestNormalize_IdempotentAndPure(t *testing.T) {
	root := map[string]any{"rss": map[string]any{"channel": map[string]any{
		"title": "T",
		"item": []any{
			map[string]any{"title": "1", "category": []any{"a", "b"}},
			map[string]any{"title": "2", "category": map[string]any{"@_domain": "d", "#text": "c"}},
		},
	}}}

	first, err := Normalize(root)
	require.NoError(t, err)
	second, err := Normalize(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// output does not alias the input tree
	first.Entries[0].Category[0] = "changed"
	first.Entries[1].Category[0].(map[string]any)["#text"] = "changed"
	items := root["rss"].(map[string]any)["channel"].(map[string]any)["item"].([]any)
	assert.Equal(t, []any{"a", "b"}, items[0].(map[string]any)["category"])
	assert.Equal(t, "c", items[1].(map[string]any)["category"].(map[string]any)["#text"])

	third, err := Normalize(root)
	require.NoError(t, err)
	assert.Equal(t, second, third)
}
