package page

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/bionic/internal/dom"
	"github.com/dgallion1/bionic/internal/engine"
	"github.com/dgallion1/bionic/internal/settings"
	"go.uber.org/goleak"
)

const testPage = `<html><head><title>Demo</title></head><body><p>Hello world</p><div id="feed"></div></body></html>`

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	doc, err := dom.ParseString(testPage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewSession(doc, "https://example.com/demo", opts, nil)
	t.Cleanup(s.Close)
	return s
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc, _ := dom.ParseString("<p>x</p>")
	l := NewLoop(doc, 4, nil)
	defer l.Stop()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
	if len(got) != 10 {
		t.Errorf("expected 10 tasks, got %d", len(got))
	}
}

func TestLoop_DrainsMicrotasksAfterEachTask(t *testing.T) {
	doc, _ := dom.ParseString("<p>x</p>")
	l := NewLoop(doc, 0, nil)
	defer l.Stop()

	ran := false
	l.Call(context.Background(), func() {
		doc.QueueMicrotask(func() { ran = true })
	})
	var pending int
	l.Call(context.Background(), func() { pending = doc.PendingMicrotasks() })
	if !ran {
		t.Error("expected microtask to run before the next task")
	}
	if pending != 0 {
		t.Errorf("expected empty microtask queue, got %d", pending)
	}
}

func TestLoop_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc, _ := dom.ParseString("<p>x</p>")
	l := NewLoop(doc, 0, nil)
	l.Stop()
	l.Stop()
	if l.Post(func() {}) {
		t.Error("expected Post to fail after Stop")
	}
	if err := l.Call(context.Background(), func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("expected ErrLoopStopped, got %v", err)
	}
}

func TestLoop_RecoversFromPanic(t *testing.T) {
	doc, _ := dom.ParseString("<p>x</p>")
	l := NewLoop(doc, 0, nil)
	defer l.Stop()

	l.Post(func() { panic("boom") })
	ok := false
	if err := l.Call(context.Background(), func() { ok = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected loop to keep running after a panic")
	}
}

func TestSession_SendBeforeInject(t *testing.T) {
	s := newTestSession(t, Options{})
	_, err := s.Send(context.Background(), engine.CheckStatus())
	if !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
	if s.Title != "Demo" {
		t.Errorf("expected title Demo, got %q", s.Title)
	}
}

func TestSession_InjectAndToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})

	if err := s.Inject(ctx, ".bionic-text b { font-weight: 700; }"); err != nil {
		t.Fatalf("inject: %v", err)
	}
	// A second injection leaves a single stylesheet.
	if err := s.Inject(ctx, ".bionic-text b { font-weight: 700; }"); err != nil {
		t.Fatalf("inject: %v", err)
	}
	out, _ := s.HTML(ctx)
	if n := strings.Count(out, `id="bionic-style"`); n != 1 {
		t.Errorf("expected one stylesheet, got %d in %s", n, out)
	}

	r, err := s.Send(ctx, engine.CheckStatus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Loaded || r.Applied == nil || *r.Applied {
		t.Errorf("expected loaded and not applied, got %+v", r)
	}

	r, err = s.Send(ctx, engine.Toggle(true, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Success || r.Enabled == nil || !*r.Enabled {
		t.Errorf("expected enabled response, got %+v", r)
	}
	out, _ = s.HTML(ctx)
	if !strings.Contains(out, `<span class="bionic-text"><b>Hel</b>lo <b>wor</b>ld</span>`) {
		t.Errorf("expected transformed paragraph, got %s", out)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Loaded || !snap.State.IsApplied || snap.Stats.Containers != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	r, _ = s.Send(ctx, engine.Toggle(false, 50))
	if r.Enabled == nil || *r.Enabled {
		t.Errorf("expected disabled response, got %+v", r)
	}
	out, _ = s.HTML(ctx)
	if strings.Contains(out, "bionic-text\"") || !strings.Contains(out, "<p>Hello world</p>") {
		t.Errorf("expected original paragraph restored, got %s", out)
	}
}

func TestSession_MutateIsObserved(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	s.Inject(ctx, "")
	s.Send(ctx, engine.Toggle(true, 50))

	n, err := s.Mutate(ctx, "#feed", "<p>Fresh item</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one target, got %d", n)
	}
	out, _ := s.HTML(ctx)
	if !strings.Contains(out, `<p><span class="bionic-text"><b>Fre</b>sh <b>it</b>em</span></p>`) {
		t.Errorf("expected inserted content transformed, got %s", out)
	}
	snap, _ := s.Snapshot(ctx)
	if snap.Stats.ObserverBatches != 1 {
		t.Errorf("expected one observer batch, got %d", snap.Stats.ObserverBatches)
	}
}

func TestSession_MutateNoMatch(t *testing.T) {
	s := newTestSession(t, Options{})
	if _, err := s.Mutate(context.Background(), "#missing", "<p>x</p>"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestSession_SettleDelayStillAnswers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s := newTestSession(t, Options{SettleDelay: 10 * time.Millisecond})
	s.Inject(ctx, "")
	s.Send(ctx, engine.Toggle(true, 50))

	r, err := s.Send(ctx, engine.Toggle(true, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Success {
		t.Errorf("expected success, got %+v", r)
	}
	out, _ := s.HTML(ctx)
	if !strings.Contains(out, `<b>Hello</b> <b>world</b>`) {
		t.Errorf("expected full-ratio markup after settle, got %s", out)
	}
}

func TestSession_CloseRestoresAndStops(t *testing.T) {
	doc, _ := dom.ParseString(testPage)
	s := NewSession(doc, "", Options{}, nil)
	ctx := context.Background()
	s.Inject(ctx, "")
	s.Send(ctx, engine.Toggle(true, 50))
	s.Close()

	out, _ := dom.Render(doc.Body())
	if !strings.Contains(out, "<p>Hello world</p>") {
		t.Errorf("expected page restored on close, got %s", out)
	}
	if _, err := s.HTML(ctx); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("expected ErrLoopStopped, got %v", err)
	}
}

func TestStore_GetDeleteEach(t *testing.T) {
	st := NewStore(time.Minute, 0)
	defer st.Close()

	a := newTestSession(t, Options{})
	b := newTestSession(t, Options{})
	st.Put(a)
	st.Put(b)

	if st.Get(a.ID) != a {
		t.Error("expected to find session a")
	}
	if st.Get("nope") != nil {
		t.Error("expected nil for unknown id")
	}
	seen := 0
	st.Each(func(*Session) { seen++ })
	if seen != 2 || st.Len() != 2 {
		t.Errorf("expected 2 sessions, saw %d len %d", seen, st.Len())
	}
	if !st.Delete(a.ID) {
		t.Error("expected delete to succeed")
	}
	if st.Delete(a.ID) {
		t.Error("expected second delete to report false")
	}
	if _, err := a.HTML(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("expected deleted session closed, got %v", err)
	}
}

func TestStore_ExpiresIdleSessions(t *testing.T) {
	st := NewStore(20*time.Millisecond, 0)
	s := newTestSession(t, Options{})
	st.Put(s)
	time.Sleep(40 * time.Millisecond)
	st.Cleanup()
	if st.Len() != 0 {
		t.Errorf("expected expired session removed, got %d", st.Len())
	}
	if _, err := s.HTML(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("expected expired session closed, got %v", err)
	}
}

func TestStore_GetDoesNotReviveEvicted(t *testing.T) {
	ctx := context.Background()
	st := NewStore(time.Millisecond, 0)
	defer st.Close()

	for i := 0; i < 50; i++ {
		s := newTestSession(t, Options{})
		st.Put(s)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			st.Cleanup()
		}()
		go func() {
			defer wg.Done()
			st.Get(s.ID)
		}()
		wg.Wait()

		if got := st.Get(s.ID); got != nil {
			if _, err := got.HTML(ctx); err != nil {
				t.Fatalf("store handed out a closed session: %v", err)
			}
		}
	}
}

func TestNewID_SortableAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("expected 26 chars, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if id <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, id)
		}
		seen[id] = true
		prev = id
	}
}

func TestStore_BroadcastReachesLoadedPages(t *testing.T) {
	ctx := context.Background()
	st := NewStore(time.Minute, 0)
	defer st.Close()

	loaded := newTestSession(t, Options{})
	loaded.Inject(ctx, "")
	loaded.Send(ctx, engine.Toggle(true, 50))
	idle := newTestSession(t, Options{})
	st.Put(loaded)
	st.Put(idle)

	n := st.Broadcast(ctx, settings.Settings{Enabled: true, BoldRatio: 100}, nil)
	if n != 1 {
		t.Errorf("expected one page updated, got %d", n)
	}
	out, _ := loaded.HTML(ctx)
	if !strings.Contains(out, `<b>Hello</b> <b>world</b>`) {
		t.Errorf("expected broadcast ratio applied, got %s", out)
	}

	st.Broadcast(ctx, settings.Settings{Enabled: false, BoldRatio: 100}, nil)
	out, _ = loaded.HTML(ctx)
	if !strings.Contains(out, "<p>Hello world</p>") {
		t.Errorf("expected page reverted by broadcast, got %s", out)
	}
}
