// Package xmltree parses XML documents into a generic, attribute-preserving tree of maps.
//
// Every element becomes either a string (text-only element without attributes) or a Node.
// Attributes are stored with AttrPrefix, text of elements carrying attributes or children
// is stored under TextKey, and repeated child elements collapse into []any.
// Mixed content, i.e. unescaped html like `Hello <b>bold</b> world`, keeps its inner markup under TextKey.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

const (
	// AttrPrefix marks attribute keys, i.e. `<link href="x"/>` becomes {"@_href": "x"}
	AttrPrefix = "@_"
	// TextKey holds element text when the element also has attributes or children
	TextKey = "#text"
)

// xmlURL is the namespace the decoder assigns to the reserved "xml" prefix
const xmlURL = "http://www.w3.org/XML/1998/namespace"

// Node is a parsed element or document
type Node = map[string]any

// ErrUnexpectedEOF returned when the document ends with unclosed elements
var ErrUnexpectedEOF = errors.New("unexpected end of document")

// frame is an element being built
type frame struct {
	name     string
	attrs    Node
	rawAttrs []string // qualified name and value pairs in document order
	children Node
	text     strings.Builder // direct text
	inner    strings.Builder // content markup, text and descendants
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// Parse reads XML from r and returns the document tree.
// The returned node is keyed by the root element name, e.g. {"rss": {...}}.
func Parse(r io.Reader) (Node, error) {
	p := xpp.NewXMLPullParser(r, false, charset.NewReaderLabel)

	doc := &frame{children: Node{}}
	stack := []*frame{doc}

	for {
		event, err := p.Next()
		if err != nil {
			return nil, fmt.Errorf("read xml: %w", err)
		}

		switch event {
		case xpp.StartTag:
			f := &frame{name: qualify(p.Space, p.Name, p.Spaces)}
			for _, attr := range p.Attrs {
				if f.attrs == nil {
					f.attrs = Node{}
				}
				name := attrName(attr.Name, p.Spaces)
				f.attrs[AttrPrefix+name] = attr.Value
				f.rawAttrs = append(f.rawAttrs, name, attr.Value)
			}
			stack = append(stack, f)
		case xpp.Text:
			f := stack[len(stack)-1]
			f.text.WriteString(p.Text)
			f.inner.WriteString(textEscaper.Replace(p.Text))
		case xpp.EndTag:
			if len(stack) < 2 {
				continue // stray end tag, tolerated in non-strict mode
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			if parent.children == nil {
				parent.children = Node{}
			}
			appendChild(parent.children, f.name, f.value())
			if parent != doc {
				f.writeMarkup(&parent.inner)
			}
		case xpp.EndDocument:
			if len(stack) != 1 {
				return nil, ErrUnexpectedEOF
			}
			return doc.children, nil
		}
	}
}

// value collapses the frame into a string or a Node
func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if len(f.attrs) == 0 && len(f.children) == 0 {
		return text
	}

	res := make(Node, len(f.attrs)+len(f.children)+1)
	for k, v := range f.attrs {
		res[k] = v
	}
	for k, v := range f.children {
		res[k] = v
	}
	switch {
	case text != "" && len(f.children) > 0:
		res[TextKey] = strings.TrimSpace(f.inner.String())
	case text != "":
		res[TextKey] = text
	}
	return res
}

// writeMarkup serializes the element back to xml
func (f *frame) writeMarkup(b *strings.Builder) {
	b.WriteString("<" + f.name)
	for i := 0; i+1 < len(f.rawAttrs); i += 2 {
		b.WriteString(" " + f.rawAttrs[i] + `="` + attrEscaper.Replace(f.rawAttrs[i+1]) + `"`)
	}
	if f.inner.Len() == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")
	b.WriteString(f.inner.String())
	b.WriteString("</" + f.name + ">")
}

// appendChild adds value under name, turning repeated names into a sequence
func appendChild(n Node, name string, value any) {
	existing, ok := n[name]
	if !ok {
		n[name] = value
		return
	}
	if seq, ok := existing.([]any); ok {
		n[name] = append(seq, value)
		return
	}
	n[name] = []any{existing, value}
}

// qualify restores the document prefix of a namespaced name.
// spaces maps namespace URL to its declared prefix, the default namespace maps to "".
func qualify(space, local string, spaces map[string]string) string {
	if space == "" {
		return local
	}
	if space == xmlURL {
		return "xml:" + local
	}
	prefix, ok := spaces[space]
	if !ok {
		// undeclared prefix, the decoder leaves it as is
		return space + ":" + local
	}
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func attrName(name xml.Name, spaces map[string]string) string {
	switch {
	case name.Space == "xmlns":
		return "xmlns:" + name.Local
	case name.Space == "" && name.Local == "xmlns":
		return "xmlns"
	default:
		return qualify(name.Space, name.Local, spaces)
	}
}
