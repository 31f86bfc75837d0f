package page

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/bionic/internal/dom"
)

var ErrLoopStopped = errors.New("page loop stopped")

// Loop is a page's single UI goroutine. Tasks run one at a time in the order
// posted; after each task the document's microtasks (mutation deliveries)
// are drained before the next task starts.
type Loop struct {
	doc   *dom.Document
	log   *slog.Logger
	tasks chan func()

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func NewLoop(doc *dom.Document, queueSize int, log *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = slog.Default()
	}
	l := &Loop{
		doc:   doc,
		log:   log,
		tasks: make(chan func(), queueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.tasks:
			l.runTask(fn)
		}
	}
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("page task panicked", "panic", r)
		}
	}()
	fn()
	l.doc.RunMicrotasks()
}

// Post queues fn. It reports false once the loop is stopped. Post must not
// be called from the loop goroutine while the queue is full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	ok := l.Post(func() {
		defer close(finished)
		fn()
	})
	if !ok {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Stop ends the loop and waits for the running task to return. Queued tasks
// are dropped. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
	<-l.done
}
