package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var ErrNotChild = errors.New("dom: node is not a child of parent")

// MutationRecord reports one structural change under an observed root.
type MutationRecord struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// Document is a mutable node tree whose structural changes are reported to
// MutationObservers. It is not safe for concurrent use; the owner serializes
// access, normally through a page loop.
type Document struct {
	Root *html.Node

	observers  []*MutationObserver
	microtasks []func()
}

func NewDocument(root *html.Node) *Document {
	return &Document{Root: root}
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewDocument(root), nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Body returns <body>, or the root when the tree has none.
func (d *Document) Body() *html.Node {
	if b := FindBody(d.Root); b != nil {
		return b
	}
	return d.Root
}

// Head returns <head>, or nil.
func (d *Document) Head() *html.Node {
	return FindHead(d.Root)
}

// AppendChild adds child as the last child of parent, detaching it from any
// previous parent first.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.detach(child)
	parent.AppendChild(child)
	d.record(parent, []*html.Node{child}, nil)
}

// InsertBefore inserts child before ref under parent. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if ref != nil && ref.Parent != parent {
		return ErrNotChild
	}
	d.detach(child)
	parent.InsertBefore(child, ref)
	d.record(parent, []*html.Node{child}, nil)
	return nil
}

// ReplaceChild swaps old for child under parent in a single mutation.
func (d *Document) ReplaceChild(parent, child, old *html.Node) error {
	if old == nil || old.Parent != parent {
		return ErrNotChild
	}
	d.detach(child)
	parent.InsertBefore(child, old)
	parent.RemoveChild(old)
	d.record(parent, []*html.Node{child}, []*html.Node{old})
	return nil
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if child == nil || child.Parent != parent {
		return ErrNotChild
	}
	parent.RemoveChild(child)
	d.record(parent, nil, []*html.Node{child})
	return nil
}

func (d *Document) detach(n *html.Node) {
	if n.Parent != nil {
		parent := n.Parent
		parent.RemoveChild(n)
		d.record(parent, nil, []*html.Node{n})
	}
}

// QueueMicrotask schedules fn to run at the next microtask checkpoint.
func (d *Document) QueueMicrotask(fn func()) {
	d.microtasks = append(d.microtasks, fn)
}

// RunMicrotasks drains the microtask queue, including tasks queued while
// draining. It returns the number of tasks run.
func (d *Document) RunMicrotasks() int {
	n := 0
	for len(d.microtasks) > 0 {
		fn := d.microtasks[0]
		d.microtasks = d.microtasks[1:]
		fn()
		n++
	}
	d.microtasks = nil
	return n
}

func (d *Document) PendingMicrotasks() int {
	return len(d.microtasks)
}

func (d *Document) record(target *html.Node, added, removed []*html.Node) {
	for _, o := range d.observers {
		if !Contains(o.root, target) {
			continue
		}
		o.records = append(o.records, MutationRecord{Target: target, Added: added, Removed: removed})
		if !o.scheduled {
			o.scheduled = true
			d.QueueMicrotask(o.deliver)
		}
	}
}
