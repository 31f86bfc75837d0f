package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBionify_ConvertsFiles(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	os.WriteFile(filepath.Join(in, "a.txt"), []byte("Hello world"), 0o644)
	os.WriteFile(filepath.Join(in, "b.md"), []byte("# Title\n\nSome `code` here."), 0o644)

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--out", out, "--ratio", "100", "-j", "2",
		filepath.Join(in, "a.txt"), filepath.Join(in, "b.md")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr.String())
	}

	a, err := os.ReadFile(filepath.Join(out, "a.bionic.html"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(a), `<p><span class="bionic-text"><b>Hello</b> <b>world</b></span></p>`) {
		t.Errorf("unexpected text output: %s", a)
	}
	if !strings.Contains(string(a), `<style id="bionic-style">`) {
		t.Errorf("expected stylesheet in output: %s", a)
	}

	b, err := os.ReadFile(filepath.Join(out, "b.bionic.html"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(b), "<code>code</code>") {
		t.Errorf("expected code span left untouched: %s", b)
	}
}

func TestBionify_RejectsBadRatio(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--ratio", "0", "x.txt"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for ratio 0")
	}
}

func TestBionify_UnsupportedFile(t *testing.T) {
	in := filepath.Join(t.TempDir(), "x.exe")
	os.WriteFile(in, []byte("MZ"), 0o644)
	cmd := newRootCmd()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--out", t.TempDir(), in})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unsupported file extension") {
		t.Errorf("expected unsupported extension error, got %v", err)
	}
}
