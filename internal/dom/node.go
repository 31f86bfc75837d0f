// Package dom wraps an x/net/html node tree as a live, observable document.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// TextContent concatenates every descendant text node of n, untrimmed.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// FindElement returns the first element named tag in document order.
func FindElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := FindElement(c, tag); e != nil {
			return e
		}
	}
	return nil
}

func FindBody(n *html.Node) *html.Node { return FindElement(n, "body") }

func FindHead(n *html.Node) *html.Node { return FindElement(n, "head") }

// Title returns the trimmed text of the document's <title>, if any.
func Title(n *html.Node) string {
	if t := FindElement(n, "title"); t != nil {
		return strings.TrimSpace(TextContent(t))
	}
	return ""
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether element n lists class in its class attribute.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Contains reports whether n is root or a descendant of root.
func Contains(root, n *html.Node) bool {
	if root == nil {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Closest walks from n (inclusive) toward the root and returns the first
// node for which match is true.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// Children snapshots the child list of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Render serializes n and its subtree.
func Render(n *html.Node) (string, error) {
	var buf strings.Builder
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
