package engine

import (
	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html"
)

// startObserver watches the root for inserted subtrees. At most one observer
// is ever attached.
func (e *Engine) startObserver() {
	if e.observer != nil || !e.attached {
		return
	}
	e.observer = e.doc.NewMutationObserver(e.onMutations)
	e.observer.Observe(e.root)
	e.log.Debug("change observer started")
}

// stopObserver disconnects the observer. Safe to call when none is running.
func (e *Engine) stopObserver() {
	if e.observer == nil {
		return
	}
	e.observer.Disconnect()
	e.observer = nil
	e.log.Debug("change observer stopped")
}

// onMutations runs the traversal over newly added material only. Nodes at or
// under a container are our own substitutions and are never fed back.
func (e *Engine) onMutations(records []dom.MutationRecord, _ *dom.MutationObserver) {
	if !e.applied {
		return
	}
	seen := make(map[*html.Node]bool)
	covered := func(n *html.Node) bool { return seen[n] }
	for _, rec := range records {
		for _, n := range rec.Added {
			if !e.live(n) || InsideContainer(n) || dom.Closest(n, covered) != nil {
				continue
			}
			seen[n] = true
			e.Traverse(n)
		}
	}
	if len(seen) > 0 {
		e.stats.ObserverBatches++
	}
}
