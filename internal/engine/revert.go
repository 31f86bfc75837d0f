package engine

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html"
)

var containerSelector = containerTag + "." + ContainerClass

// Revert stops the change observer, restores every container under the
// engine's root and clears the applied flag. Reverting a clean tree is a
// no-op.
func (e *Engine) Revert() int {
	if !e.attached {
		return 0
	}
	e.stopObserver()
	n := e.revertScope(e.root)
	e.applied = false
	return n
}

// RevertScope restores the containers inside scope to plain text nodes and
// returns how many were restored. Containers that are no longer attached are
// skipped, and registry entries for them are dropped.
//
// The observer is stopped for the sweep so the restored text is not picked up
// as new content. It is restarted afterwards if the page is still applied.
func (e *Engine) RevertScope(scope *html.Node) int {
	if scope == nil || !e.attached {
		return 0
	}
	watching := e.observer != nil
	e.stopObserver()
	n := e.revertScope(scope)
	if watching && e.applied {
		e.startObserver()
	}
	return n
}

func (e *Engine) revertScope(scope *html.Node) int {
	restored := 0
	for _, c := range findContainers(scope) {
		if !dom.Contains(scope, c) {
			// Removed together with an outer container earlier in this sweep.
			continue
		}
		parent := c.Parent
		original, ok := e.registry.take(c)
		if !ok {
			original, ok = e.registry.takeOrphan(parent, e.live)
		}
		if !ok {
			original = dom.TextContent(c)
			e.stats.Fallbacks++
			e.log.Warn("registry miss, restoring rendered text", "chars", len(original))
		}
		if err := e.doc.ReplaceChild(parent, &html.Node{Type: html.TextNode, Data: original}, c); err != nil {
			continue
		}
		restored++
	}

	if dropped := e.registry.prune(e.live); dropped > 0 {
		e.stats.StaleDropped += dropped
		e.log.Debug("dropped stale registry entries", "count", dropped)
	}
	e.stats.NodesRestored += restored
	return restored
}

// findContainers snapshots the containers in scope, in document order.
func findContainers(scope *html.Node) []*html.Node {
	var out []*html.Node
	if IsContainer(scope) {
		out = append(out, scope)
	}
	found := goquery.NewDocumentFromNode(scope).Find(containerSelector).Nodes
	return append(out, found...)
}
