package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestDefault(t *testing.T) {
	d := Default()
	if !d.Enabled || d.BoldRatio != 50 {
		t.Errorf("expected {true 50}, got %+v", d)
	}
}

func TestNormalize_ClampsRatio(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 50},
		{-5, 1},
		{1, 1},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		got := Settings{BoldRatio: tt.in}.Normalize().BoldRatio
		if got != tt.want {
			t.Errorf("Normalize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromMap_MalformedFallsBack(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want Settings
	}{
		{"absent", map[string]any{}, Settings{true, 50}},
		{"nil", nil, Settings{true, 50}},
		{"wrong types", map[string]any{"bionicEnabled": 3, "boldRatio": []int{1}}, Settings{true, 50}},
		{"json numbers", map[string]any{"bionicEnabled": false, "boldRatio": 30.0}, Settings{false, 30}},
		{"strings", map[string]any{"bionicEnabled": "false", "boldRatio": "70"}, Settings{false, 70}},
		{"out of range", map[string]any{"boldRatio": 1e12}, Settings{true, 100}},
		{"zero ratio", map[string]any{"boldRatio": 0.0}, Settings{true, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromMap(tt.in); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s, _ := m.Load(ctx)
	if s != Default() {
		t.Errorf("expected default before save, got %+v", s)
	}
	m.Save(ctx, Settings{Enabled: false, BoldRatio: 500})
	s, _ = m.Load(ctx)
	if s != (Settings{Enabled: false, BoldRatio: 100}) {
		t.Errorf("expected clamped saved settings, got %+v", s)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	f := NewFileStore(path, nil)

	s, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != Default() {
		t.Errorf("expected default for missing file, got %+v", s)
	}

	if err := f.Save(ctx, Settings{Enabled: false, BoldRatio: 35}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err = f.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != (Settings{Enabled: false, BoldRatio: 35}) {
		t.Errorf("expected saved settings, got %+v", s)
	}

	raw, _ := os.ReadFile(path)
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("expected JSON file, got %q", raw)
	}
	if _, ok := m["bionicEnabled"]; !ok {
		t.Errorf("expected bionicEnabled key in %v", m)
	}
}

func TestFileStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	s, err := NewFileStore(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("malformed settings must not be an error, got %v", err)
	}
	if s != Default() {
		t.Errorf("expected defaults, got %+v", s)
	}
}

func TestFileStore_WatchReportsEdits(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "settings.json")
	f := NewFileStore(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Settings, 4)
	done := make(chan error, 1)
	go func() {
		done <- f.Watch(ctx, func(s Settings) { got <- s })
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"bionicEnabled":false,"boldRatio":80}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case s := <-got:
		if s != (Settings{Enabled: false, BoldRatio: 80}) {
			t.Errorf("expected watched settings, got %+v", s)
		}
	case <-time.After(3 * time.Second):
		t.Error("timed out waiting for settings change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected watch error: %v", err)
	}
}

func TestRemoteStore_LoadSave(t *testing.T) {
	var stored map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/kv/users/u1/bionic" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodGet:
			if stored == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"key_path": "users/u1/bionic", "value": stored})
		case http.MethodPut:
			var req struct {
				Value map[string]any `json:"value"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			stored = req.Value
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewRemoteStore(srv.URL, "secret", "users/u1/bionic")
	defer store.Close()

	s, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != Default() {
		t.Errorf("expected default on 404, got %+v", s)
	}

	if err := store.Save(ctx, Settings{Enabled: false, BoldRatio: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != (Settings{Enabled: false, BoldRatio: 20}) {
		t.Errorf("expected saved settings, got %+v", s)
	}
}

func TestRemoteStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewRemoteStore(srv.URL, "k", "x").Load(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if s != Default() {
		t.Errorf("expected defaults alongside error, got %+v", s)
	}
}

func TestFromFields(t *testing.T) {
	s := fromFields(map[string]string{"bionicEnabled": "true", "boldRatio": "12"})
	if s != (Settings{Enabled: true, BoldRatio: 12}) {
		t.Errorf("unexpected settings %+v", s)
	}
}
