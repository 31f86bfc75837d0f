// Package source loads documents of several formats as live HTML pages.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parser converts raw document bytes into a page.
type Parser interface {
	Parse(r io.Reader, filename string) (*dom.Document, error)
}

// SupportedExtensions lists file extensions that can be loaded.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune individual parsers.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// stem strips the directory and extension from filename.
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// builder assembles a minimal page: html, head with title, body.
type builder struct {
	root *html.Node
	head *html.Node
	body *html.Node
}

func newBuilder(title string) *builder {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := element(atom.Html)
	head := element(atom.Head)
	body := element(atom.Body)
	root.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	if title != "" {
		head.AppendChild(textElement(atom.Title, title))
	}
	return &builder{root: root, head: head, body: body}
}

// add appends a text-only element to parent, or to the body when nil.
func (b *builder) add(parent *html.Node, a atom.Atom, text string) *html.Node {
	if parent == nil {
		parent = b.body
	}
	n := textElement(a, text)
	parent.AppendChild(n)
	return n
}

func (b *builder) document() *dom.Document {
	return dom.NewDocument(b.root)
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func textElement(a atom.Atom, text string) *html.Node {
	n := element(a)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}

// headingAtoms maps heading level 1..6 to its element.
var headingAtoms = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func headingAtom(level int) atom.Atom {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return headingAtoms[level-1]
}
