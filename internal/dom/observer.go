package dom

import "golang.org/x/net/html"

// MutationCallback receives a batch of records after the mutating task ends.
type MutationCallback func(records []MutationRecord, o *MutationObserver)

// MutationObserver collects records for mutations under one root and hands
// them to its callback in batches at microtask checkpoints.
type MutationObserver struct {
	doc       *Document
	callback  MutationCallback
	root      *html.Node
	records   []MutationRecord
	scheduled bool
}

func (d *Document) NewMutationObserver(cb MutationCallback) *MutationObserver {
	return &MutationObserver{doc: d, callback: cb}
}

// Observe starts watching root and its descendants. Observing again moves
// the watch to the new root.
func (o *MutationObserver) Observe(root *html.Node) {
	if o.root == nil {
		o.doc.observers = append(o.doc.observers, o)
	}
	o.root = root
}

// Disconnect stops the watch and drops undelivered records. Safe to call
// more than once.
func (o *MutationObserver) Disconnect() {
	if o.root == nil {
		return
	}
	o.root = nil
	o.records = nil
	obs := o.doc.observers[:0]
	for _, other := range o.doc.observers {
		if other != o {
			obs = append(obs, other)
		}
	}
	o.doc.observers = obs
}

// Active reports whether the observer is attached to a root.
func (o *MutationObserver) Active() bool {
	return o.root != nil
}

// TakeRecords empties and returns the pending record queue.
func (o *MutationObserver) TakeRecords() []MutationRecord {
	recs := o.records
	o.records = nil
	return recs
}

func (o *MutationObserver) deliver() {
	o.scheduled = false
	if o.root == nil || len(o.records) == 0 {
		return
	}
	recs := o.TakeRecords()
	o.callback(recs, o)
}
