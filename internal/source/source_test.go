package source

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dgallion1/bionic/internal/dom"
	"github.com/fumiama/go-docx"
)

func renderBody(t *testing.T, d *dom.Document) string {
	t.Helper()
	out, err := dom.Render(d.Body())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\n\nThird <paragraph>."
	doc, err := (&TextParser{}).Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dom.Title(doc.Root); got != "notes" {
		t.Errorf("expected title %q, got %q", "notes", got)
	}
	want := "<body><p>First paragraph line one.\nFirst paragraph line two.</p><p>Second paragraph.</p><p>Third &lt;paragraph&gt;.</p></body>"
	if got := renderBody(t, doc); got != want {
		t.Errorf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	doc, err := (&TextParser{}).Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := renderBody(t, doc); got != "<body></body>" {
		t.Errorf("expected empty body, got %s", got)
	}
}

func TestMarkdownParser_RendersHTML(t *testing.T) {
	input := `# Reading *Faster*

Intro text with **strong** words.

` + "```go\nfmt.Println(\"hi\")\n```" + `

- one
- two
`
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "guide.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dom.Title(doc.Root); got != "Reading Faster" {
		t.Errorf("expected title from first heading, got %q", got)
	}
	body := renderBody(t, doc)
	for _, want := range []string{
		"<h1>Reading <em>Faster</em></h1>",
		"<strong>strong</strong>",
		`<pre><code class="language-go">`,
		"<li>one</li>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in %s", want, body)
		}
	}
}

func TestMarkdownParser_TitleFallsBackToFilename(t *testing.T) {
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader("just text"), "dir/notes.markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dom.Title(doc.Root); got != "notes" {
		t.Errorf("expected filename title, got %q", got)
	}
}

func TestCSVParser_Table(t *testing.T) {
	input := "name,role\nAda,engineer\nGrace,admiral,extra\n"
	doc, err := (&CSVParser{}).Parse(strings.NewReader(input), "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "<body><table><thead><tr><th>name</th><th>role</th></tr></thead><tbody>" +
		"<tr><td>Ada</td><td>engineer</td></tr>" +
		"<tr><td>Grace</td><td>admiral</td><td>extra</td></tr></tbody></table></body>"
	if got := renderBody(t, doc); got != want {
		t.Errorf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
}

func TestHTMLParser_KeepsMarkup(t *testing.T) {
	input := `<html><head><title>Page</title></head><body><p class="x">Hi <em>there</em></p></body></html>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dom.Title(doc.Root); got != "Page" {
		t.Errorf("expected title Page, got %q", got)
	}
	if got := renderBody(t, doc); got != `<body><p class="x">Hi <em>there</em></p></body>` {
		t.Errorf("unexpected body %s", got)
	}

	doc, _ = (&HTMLParser{}).Parse(strings.NewReader("<p>untitled</p>"), "frag.htm")
	if got := dom.Title(doc.Root); got != "frag" {
		t.Errorf("expected filename title, got %q", got)
	}
}

func TestDOCXParser_HeadingsAndParagraphs(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().Style("Heading1").AddText("Annual Report")
	w.AddParagraph().AddText("Opening paragraph.")
	w.AddParagraph().Style("Heading2").AddText("Details")
	w.AddParagraph().AddText("More text.")

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	doc, err := (&DOCXParser{}).Parse(&buf, "report.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dom.Title(doc.Root); got != "Annual Report" {
		t.Errorf("expected title from first heading, got %q", got)
	}
	want := "<body><h1>Annual Report</h1><p>Opening paragraph.</p><h2>Details</h2><p>More text.</p></body>"
	if got := renderBody(t, doc); got != want {
		t.Errorf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading 3", 3},
		{"Heading 6", 6},
		{"Heading7", 0},
		{"BodyText", 0},
		{"", 0},
	}
	for _, tt := range tests {
		p := &docx.Paragraph{Properties: &docx.ParagraphProperties{Style: &docx.Style{Val: tt.style}}}
		if got := docxHeadingLevel(p); got != tt.want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
	if got := docxHeadingLevel(&docx.Paragraph{}); got != 0 {
		t.Errorf("expected 0 without properties, got %d", got)
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "b.MD", "c.csv", "d.htm", "e.pdf", "f.docx"} {
		if _, err := ForFile(name, Options{}); err != nil {
			t.Errorf("ForFile(%q): unexpected error %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("expected %q to be supported", name)
		}
	}
	if _, err := ForFile("x.exe", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
	p, _ := ForFile("scan.pdf", Options{PDFFallbackPdftotext: true})
	if pp, ok := p.(*PDFParser); !ok || !pp.FallbackPdftotext {
		t.Errorf("expected pdf parser with fallback, got %#v", p)
	}
}

func TestPDFParser_RejectsGarbage(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader("not a pdf"), "bad.pdf")
	if err == nil {
		t.Error("expected error for invalid pdf")
	}
}
