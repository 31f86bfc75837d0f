package source

import (
	"fmt"
	"io"

	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html/atom"
)

// HTMLParser loads HTML pages as they are.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if dom.Title(doc.Root) == "" && doc.Head() != nil && filename != "" {
		doc.Head().AppendChild(textElement(atom.Title, stem(filename)))
	}
	return doc, nil
}
