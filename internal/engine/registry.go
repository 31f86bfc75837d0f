package engine

import "golang.org/x/net/html"

type entry struct {
	original string
	parent   *html.Node // parent at transform time
}

// Registry maps each live transformed container to the text it replaced.
// Entries are created when a container is inserted and removed when it is
// reverted, so the registry never outlives the containers it describes.
type Registry struct {
	entries map[*html.Node]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[*html.Node]entry)}
}

func (r *Registry) put(container, parent *html.Node, original string) {
	r.entries[container] = entry{original: original, parent: parent}
}

// Has reports whether container has a registered original.
func (r *Registry) Has(container *html.Node) bool {
	_, ok := r.entries[container]
	return ok
}

// Original returns the registered text for container without removing it.
func (r *Registry) Original(container *html.Node) (string, bool) {
	e, ok := r.entries[container]
	return e.original, ok
}

// take looks up and removes the entry for container.
func (r *Registry) take(container *html.Node) (string, bool) {
	e, ok := r.entries[container]
	if ok {
		delete(r.entries, container)
	}
	return e.original, ok
}

// takeOrphan claims an entry recorded under parent whose own container is no
// longer live. This recovers containers the host copied or re-created.
func (r *Registry) takeOrphan(parent *html.Node, live func(*html.Node) bool) (string, bool) {
	for c, e := range r.entries {
		if e.parent == parent && !live(c) {
			delete(r.entries, c)
			return e.original, true
		}
	}
	return "", false
}

// prune drops entries whose containers are no longer live.
func (r *Registry) prune(live func(*html.Node) bool) int {
	n := 0
	for c := range r.entries {
		if !live(c) {
			delete(r.entries, c)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	return len(r.entries)
}
