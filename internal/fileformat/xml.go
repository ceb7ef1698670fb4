package fileformat

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// TextKey holds an element's character data when it also has attributes or
// child elements.
const TextKey = "_text"

var utf8BOM = []byte("\xef\xbb\xbf")

// XMLStrategy parses XML documents into nested maps. Tag and attribute names
// are lowercased, repeated sibling elements become arrays and elements with
// only text become strings.
type XMLStrategy struct{}

func (s *XMLStrategy) Format() Format { return FormatXML }
func (s *XMLStrategy) Priority() int  { return PriorityXML }

func (s *XMLStrategy) CanHandle(_ context.Context, data []byte) bool {
	text := trimmedText(data)
	if len(text) < 3 || text[0] != '<' || !strings.HasSuffix(text, ">") {
		return false
	}
	c := text[1]
	return c == '?' || c == '!' || c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

func (s *XMLStrategy) Parse(_ context.Context, data []byte) (any, error) {
	decoder := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charsetReader

	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: strings.ToLower(t.Name.Local), attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	return map[string]any{root.name: root.value()}, nil
}

func (n *xmlNode) value() any {
	text := strings.TrimSpace(n.text.String())
	if len(n.attrs) == 0 && len(n.children) == 0 {
		return text
	}

	m := make(map[string]any, len(n.attrs)+len(n.children)+1)
	for _, attr := range n.attrs {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		m[strings.ToLower(attr.Name.Local)] = attr.Value
	}
	for _, child := range n.children {
		v := child.value()
		existing, ok := m[child.name]
		if !ok {
			m[child.name] = v
			continue
		}
		if list, isList := existing.([]any); isList {
			m[child.name] = append(list, v)
		} else {
			m[child.name] = []any{existing, v}
		}
	}
	if text != "" {
		m[TextKey] = text
	}
	return m
}

// charsetReader decodes documents that declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported XML encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
