package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html/atom"
)

// TextParser turns plain text into one <p> per blank-line separated paragraph.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return nil, err
	}
	b := newBuilder(stem(filename))
	for _, para := range paragraphs {
		b.add(nil, atom.P, para)
	}
	return b.document(), nil
}

func splitParagraphs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs, scanner.Err()
}
