package engine

import (
	"strings"

	"github.com/dgallion1/bionic/internal/bionic"
	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Traverse transforms every eligible text node reachable from start using
// the engine's current ratio and returns the number of containers created.
// Running it again over an unchanged subtree creates nothing.
func (e *Engine) Traverse(start *html.Node) int {
	if start == nil || !e.attached {
		return 0
	}
	// The start node may sit inside an excluded region or an existing
	// container even though it is not one itself.
	if dom.Closest(start.Parent, func(n *html.Node) bool { return isExcluded(n) || IsContainer(n) }) != nil {
		return 0
	}
	e.stats.TraversalPasses++

	created := 0
	stack := []*html.Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type {
		case html.TextNode:
			if e.eligible(n) && e.transform(n) {
				created++
			}
			continue
		case html.ElementNode:
			if isExcluded(n) || IsContainer(n) {
				continue
			}
		case html.DocumentNode:
		default:
			continue
		}

		// Push a snapshot in reverse so children pop in document order and
		// replacements cannot disturb sibling iteration.
		kids := dom.Children(n)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}

	e.stats.NodesTransformed += created
	return created
}

// eligible decides whether a text node should be transformed.
func (e *Engine) eligible(n *html.Node) bool {
	if strings.TrimSpace(n.Data) == "" {
		return false
	}
	parent := n.Parent
	if parent == nil || isExcluded(parent) {
		return false
	}
	return !InsideContainer(parent)
}

// transform replaces text node n with a container holding its bionic form.
func (e *Engine) transform(n *html.Node) bool {
	parent := n.Parent
	original := n.Data
	container := buildContainer(bionic.Text(original, e.ratio))

	if err := e.doc.ReplaceChild(parent, container, n); err != nil {
		e.log.Warn("transform skipped", "error", err)
		return false
	}
	e.registry.put(container, parent, original)
	return true
}

func buildContainer(segs []bionic.Segment) *html.Node {
	container := &html.Node{
		Type:     html.ElementNode,
		Data:     containerTag,
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "class", Val: ContainerClass}},
	}
	for _, seg := range segs {
		t := &html.Node{Type: html.TextNode, Data: seg.Text}
		if !seg.Bold {
			container.AppendChild(t)
			continue
		}
		b := &html.Node{Type: html.ElementNode, Data: markerTag, DataAtom: atom.B}
		b.AppendChild(t)
		container.AppendChild(b)
	}
	return container
}
