// Package bionic computes the bold/plain split of words for bionic reading.
package bionic

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	MinRatio     = 1
	MaxRatio     = 100
	DefaultRatio = 50
)

// Segment is a run of text rendered either bold or plain.
type Segment struct {
	Text string
	Bold bool
}

// ClampRatio forces r into [MinRatio, MaxRatio].
func ClampRatio(r int) int {
	if r < MinRatio {
		return MinRatio
	}
	if r > MaxRatio {
		return MaxRatio
	}
	return r
}

// Highlight returns how many of n characters are bolded at ratio r.
// At least one character is always bolded for a non-empty word.
func Highlight(n, r int) int {
	if n <= 0 {
		return 0
	}
	r = ClampRatio(r)
	c := (n*r + MaxRatio - 1) / MaxRatio
	if c < 1 {
		c = 1
	}
	if c > n {
		c = n
	}
	return c
}

// Word splits a single whitespace-free token into segments. Leading
// punctuation stays outside the bold run; trailing punctuation is part of
// the plain remainder. Tokens without word characters come back as one
// plain segment.
func Word(token string, ratio int) []Segment {
	if token == "" {
		return nil
	}
	punct, word := splitLeadingPunct(token)
	if word == "" {
		return []Segment{{Text: token}}
	}

	// Count user-perceived characters, not bytes or runes.
	var bounds []int
	g := uniseg.NewGraphemes(word)
	for g.Next() {
		_, to := g.Positions()
		bounds = append(bounds, to)
	}
	cut := bounds[Highlight(len(bounds), ratio)-1]

	segs := make([]Segment, 0, 3)
	if punct != "" {
		segs = append(segs, Segment{Text: punct})
	}
	segs = append(segs, Segment{Text: word[:cut], Bold: true})
	if cut < len(word) {
		segs = append(segs, Segment{Text: word[cut:]})
	}
	return segs
}

// Text transforms every whitespace-delimited token of s. Whitespace runs are
// carried through verbatim, so concatenating the segment texts yields s.
func Text(s string, ratio int) []Segment {
	var segs []Segment
	appendPlain := func(t string) {
		if n := len(segs); n > 0 && !segs[n-1].Bold {
			segs[n-1].Text += t
			return
		}
		segs = append(segs, Segment{Text: t})
	}

	for len(s) > 0 {
		ws := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
		if ws < 0 {
			appendPlain(s)
			break
		}
		if ws > 0 {
			appendPlain(s[:ws])
			s = s[ws:]
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			end = len(s)
		}
		for _, seg := range Word(s[:end], ratio) {
			if seg.Bold {
				segs = append(segs, seg)
			} else {
				appendPlain(seg.Text)
			}
		}
		s = s[end:]
	}
	return segs
}

// Markup renders Text(s, ratio) as escaped HTML with <b> around bold runs.
func Markup(s string, ratio int) string {
	var b strings.Builder
	for _, seg := range Text(s, ratio) {
		if seg.Bold {
			b.WriteString("<b>")
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString("</b>")
			continue
		}
		b.WriteString(html.EscapeString(seg.Text))
	}
	return b.String()
}

// Plain joins segment texts back into the source string.
func Plain(segs []Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(seg.Text)
	}
	return b.String()
}

func splitLeadingPunct(token string) (punct, word string) {
	i := 0
	for i < len(token) {
		r, size := utf8.DecodeRuneInString(token[i:])
		if isWordRune(r) || unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return token[:i], token[i:]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
