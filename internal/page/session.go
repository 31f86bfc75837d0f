package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/bionic/internal/dom"
	"github.com/dgallion1/bionic/internal/engine"
	"github.com/dgallion1/bionic/internal/settings"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNotLoaded     = errors.New("engine not loaded in page")
	ErrNoMatch       = errors.New("selector matched no element")
	ErrInvalidTarget = errors.New("selector matched an element that cannot hold content")
)

// StyleID is the id of the stylesheet element inserted with the engine.
const StyleID = "bionic-style"

// Options tunes a session's loop and engine.
type Options struct {
	QueueSize   int
	SettleDelay time.Duration
}

// Session is one loaded page: its document, its UI loop and, once injected,
// its engine. The document and engine are only touched on the loop.
type Session struct {
	ID        string
	Title     string
	URL       string
	CreatedAt time.Time

	doc  *dom.Document
	loop *Loop
	log  *slog.Logger
	opts Options

	// Loop-owned.
	eng  *engine.Engine
	ctrl *engine.Controller
}

func NewSession(doc *dom.Document, url string, opts Options, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	id := NewID()
	log = log.With("page_id", id)
	return &Session{
		ID:        id,
		Title:     dom.Title(doc.Root),
		URL:       url,
		CreatedAt: time.Now(),
		doc:       doc,
		loop:      NewLoop(doc, opts.QueueSize, log),
		log:       log,
		opts:      opts,
	}
}

// Inject attaches an engine to the page and adds stylesheet to <head>.
// Injecting into a page that already has an engine is a no-op.
func (s *Session) Inject(ctx context.Context, stylesheet string) error {
	var injectErr error
	err := s.loop.Call(ctx, func() {
		if s.eng != nil {
			return
		}
		if err := s.insertStyle(stylesheet); err != nil {
			injectErr = err
			return
		}
		s.eng = engine.New(s.doc, s.log)
		s.eng.Attach()
		s.ctrl = engine.NewController(s.eng, s.loop, s.opts.SettleDelay)
		s.log.Info("engine injected")
	})
	if err != nil {
		return fmt.Errorf("inject: %w", err)
	}
	return injectErr
}

func (s *Session) insertStyle(css string) error {
	if css == "" {
		return nil
	}
	if goquery.NewDocumentFromNode(s.doc.Root).Find("#"+StyleID).Length() > 0 {
		return nil
	}
	parent := s.doc.Head()
	if parent == nil {
		parent = dom.FindElement(s.doc.Root, "html")
	}
	if parent == nil {
		return fmt.Errorf("no element to hold stylesheet")
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: StyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	s.doc.AppendChild(parent, style)
	return nil
}

// Send delivers msg to the page's engine and waits for its response.
func (s *Session) Send(ctx context.Context, msg engine.Message) (engine.Response, error) {
	replies := make(chan engine.Response, 1)
	loaded := true
	err := s.loop.Call(ctx, func() {
		if s.ctrl == nil {
			loaded = false
			return
		}
		s.ctrl.Handle(msg, func(r engine.Response) { replies <- r })
	})
	if err != nil {
		return engine.Response{}, err
	}
	if !loaded {
		return engine.Response{}, ErrNotLoaded
	}
	select {
	case r := <-replies:
		return r, nil
	case <-ctx.Done():
		return engine.Response{}, ctx.Err()
	}
}

// Mutate parses fragment and appends it to every element matching selector,
// the way page scripts add content after load. It returns the number of
// elements that received content.
func (s *Session) Mutate(ctx context.Context, selector, fragment string) (int, error) {
	var (
		count  int
		mutErr error
	)
	err := s.loop.Call(ctx, func() {
		targets := goquery.NewDocumentFromNode(s.doc.Root).Find(selector).Nodes
		if len(targets) == 0 {
			mutErr = ErrNoMatch
			return
		}
		for _, target := range targets {
			if target.Type != html.ElementNode {
				mutErr = ErrInvalidTarget
				return
			}
			nodes, err := html.ParseFragment(strings.NewReader(fragment), target)
			if err != nil {
				mutErr = fmt.Errorf("parse fragment: %w", err)
				return
			}
			for _, n := range nodes {
				s.doc.AppendChild(target, n)
			}
			count++
		}
	})
	if err != nil {
		return 0, err
	}
	return count, mutErr
}

// HTML renders the current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var (
		out       string
		renderErr error
	)
	err := s.loop.Call(ctx, func() {
		out, renderErr = dom.Render(s.doc.Root)
	})
	if err != nil {
		return "", err
	}
	return out, renderErr
}

// Snapshot is a point-in-time view of the session's engine.
type Snapshot struct {
	ID       string             `json:"page_id"`
	Title    string             `json:"title"`
	URL      string             `json:"url,omitempty"`
	Loaded   bool               `json:"loaded"`
	Phase    engine.Phase       `json:"phase,omitempty"`
	State    engine.State       `json:"state"`
	Stats    engine.Stats       `json:"stats"`
	Uptime   time.Duration      `json:"uptime_ns"`
	Settings *settings.Settings `json:"settings,omitempty"`
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{ID: s.ID, Title: s.Title, URL: s.URL, Uptime: time.Since(s.CreatedAt)}
	err := s.loop.Call(ctx, func() {
		if s.eng == nil {
			return
		}
		snap.Loaded = true
		snap.Phase = s.ctrl.Phase()
		snap.State = s.eng.State()
		snap.Stats = s.eng.Stats()
		cur := s.ctrl.Settings()
		snap.Settings = &cur
	})
	return snap, err
}

// Close detaches the engine, restoring the page, and stops the loop.
func (s *Session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.loop.Call(ctx, func() {
		if s.eng != nil {
			s.eng.Detach()
		}
	})
	s.loop.Stop()
	s.log.Debug("page closed")
}
