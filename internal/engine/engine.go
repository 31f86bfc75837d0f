// Package engine applies and reverts bionic reading on a live document.
//
// An Engine owns the original-text registry, the applied flag and the change
// observer for one page. Every method must run on the page's loop goroutine;
// nothing here is safe for concurrent use.
package engine

import (
	"log/slog"

	"github.com/dgallion1/bionic/internal/bionic"
	"github.com/dgallion1/bionic/internal/dom"
	"golang.org/x/net/html"
)

const (
	// ContainerClass marks every transformed container.
	ContainerClass = "bionic-text"
	containerTag   = "span"
	markerTag      = "b"
)

// excludedTags never have their text transformed, at any depth.
var excludedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"pre":      true,
	"code":     true,
	"textarea": true,
	"input":    true,
	"button":   true,
	"select":   true,
	"option":   true,
}

// State is the engine's externally visible state.
type State struct {
	IsApplied      bool `json:"is_applied"`
	ObserverActive bool `json:"observer_active"`
}

// Stats counts engine work over the page's lifetime.
type Stats struct {
	TraversalPasses  int `json:"traversal_passes"`
	NodesTransformed int `json:"nodes_transformed"`
	NodesRestored    int `json:"nodes_restored"`
	Fallbacks        int `json:"fallbacks"`
	StaleDropped     int `json:"stale_dropped"`
	ObserverBatches  int `json:"observer_batches"` // batches that led to a traversal
	Containers       int `json:"containers"`
}

type Engine struct {
	doc      *dom.Document
	root     *html.Node
	log      *slog.Logger
	registry *Registry
	observer *dom.MutationObserver

	ratio    int
	applied  bool
	attached bool
	stats    Stats
}

// New creates an engine for doc. It does nothing until attached.
func New(doc *dom.Document, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		doc:      doc,
		log:      log,
		registry: NewRegistry(),
		ratio:    bionic.DefaultRatio,
	}
}

// Attach binds the engine to the document body. State starts cleared.
func (e *Engine) Attach() {
	if e.attached {
		return
	}
	e.root = e.doc.Body()
	e.attached = true
	e.applied = false
	e.log.Debug("engine attached")
}

// Detach stops observing and reverts everything the engine transformed.
func (e *Engine) Detach() {
	if !e.attached {
		return
	}
	e.stopObserver()
	e.Revert()
	e.attached = false
	e.log.Debug("engine detached")
}

func (e *Engine) Attached() bool { return e.attached }

func (e *Engine) Root() *html.Node { return e.root }

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) State() State {
	return State{IsApplied: e.applied, ObserverActive: e.observer != nil}
}

func (e *Engine) Stats() Stats {
	s := e.stats
	s.Containers = e.registry.Len()
	return s
}

// live reports whether n is still attached under the engine's root.
func (e *Engine) live(n *html.Node) bool {
	return dom.Contains(e.root, n)
}

// IsContainer reports whether n is a transformed container.
func IsContainer(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == containerTag && dom.HasClass(n, ContainerClass)
}

// InsideContainer reports whether n is a container or has one as ancestor.
func InsideContainer(n *html.Node) bool {
	return dom.Closest(n, IsContainer) != nil
}

func isExcluded(n *html.Node) bool {
	return n.Type == html.ElementNode && excludedTags[n.Data]
}
