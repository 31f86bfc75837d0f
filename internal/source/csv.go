package source

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html/atom"
)

// CSVParser renders a CSV file as a table whose first row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*dom.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := newBuilder(stem(filename))
	if len(records) == 0 {
		return b.document(), nil
	}

	table := element(atom.Table)
	b.body.AppendChild(table)

	thead := element(atom.Thead)
	table.AppendChild(thead)
	hr := element(atom.Tr)
	thead.AppendChild(hr)
	for _, h := range records[0] {
		b.add(hr, atom.Th, h)
	}

	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, row := range records[1:] {
		tr := element(atom.Tr)
		tbody.AppendChild(tr)
		for _, cell := range row {
			b.add(tr, atom.Td, cell)
		}
	}
	return b.document(), nil
}
