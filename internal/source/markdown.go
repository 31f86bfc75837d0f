package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/bionic/internal/dom"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// MarkdownParser renders Markdown to HTML with goldmark. Raw HTML in the
// source is omitted by goldmark's default renderer.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	tree := md.Parser().Parse(text.NewReader(src))

	var rendered bytes.Buffer
	if err := md.Renderer().Render(&rendered, src, tree); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	title := firstHeading(tree, src)
	if title == "" {
		title = stem(filename)
	}
	b := newBuilder(title)
	nodes, err := html.ParseFragment(&rendered, b.body)
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}
	for _, n := range nodes {
		b.body.AppendChild(n)
	}
	return b.document(), nil
}

// firstHeading returns the text of the first level-1 heading.
func firstHeading(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return strings.TrimSpace(extractText(h, src))
		}
	}
	return ""
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		buf.WriteString(extractText(c, src))
	}
	return buf.String()
}

