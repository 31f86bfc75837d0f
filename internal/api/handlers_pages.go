package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bionic/internal/dom"
	"github.com/dgallion1/bionic/internal/engine"
	"github.com/dgallion1/bionic/internal/page"
	"github.com/dgallion1/bionic/internal/source"
	"github.com/go-chi/chi/v5"
)

type createPageRequest struct {
	HTML  string `json:"html"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// handleCreatePage loads a page from a multipart upload or a JSON body.
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var (
		doc   *dom.Document
		title string
		url   string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		d, name, ok := s.parseUpload(w, r)
		if !ok {
			return
		}
		doc, title, url = d, r.FormValue("title"), r.FormValue("url")
		if title == "" && dom.Title(doc.Root) == "" {
			title = name
		}
	} else {
		var req createPageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.HTML) == "" {
			jsonError(w, "html is required", http.StatusBadRequest)
			return
		}
		d, err := dom.ParseString(req.HTML)
		if err != nil {
			jsonError(w, "invalid html: "+err.Error(), http.StatusBadRequest)
			return
		}
		doc, title, url = d, req.Title, req.URL
	}

	sess := page.NewSession(doc, url, page.Options{
		QueueSize:   s.cfg.PageQueueSize,
		SettleDelay: s.cfg.SettleDelay,
	}, s.log)
	if title != "" {
		sess.Title = title
	}
	s.pages.Put(sess)
	s.log.Info("page loaded", "page_id", sess.ID, "title", sess.Title)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"page_id": sess.ID,
		"title":   sess.Title,
		"url":     fmt.Sprintf("/api/pages/%s", sess.ID),
	})
}

// parseUpload reads the multipart "file" field through the matching source
// parser. It writes the error response itself and reports false on failure.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*dom.Document, string, bool) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := source.ForFile(filename, source.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, "", false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, "", false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, "", false
	}

	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "failed to parse document: "+err.Error(), http.StatusUnprocessableEntity)
		return nil, "", false
	}
	return doc, strings.TrimSuffix(filename, filepath.Ext(filename)), true
}

// session resolves {pageID} or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *page.Session {
	id := chi.URLParam(r, "pageID")
	sess := s.pages.Get(id)
	if sess == nil {
		jsonError(w, "page not found", http.StatusNotFound)
	}
	return sess
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	out, err := sess.HTML(r.Context())
	if err != nil {
		jsonError(w, "render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, out)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pageID")
	if !s.pages.Delete(id) {
		jsonError(w, "page not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadPage signals that the page finished loading and runs the
// auto-apply bootstrap.
func (s *Server) handleLoadPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	outcome, err := s.boot.PageLoaded(r.Context(), sess)
	if err != nil {
		s.log.Error("bootstrap failed", "page_id", sess.ID, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"page_id": sess.ID, "outcome": outcome})
}

// handleMessage delivers a command to the page's engine and returns its
// response.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var msg engine.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if msg.Action == "" {
		jsonError(w, "action is required", http.StatusBadRequest)
		return
	}
	resp, err := sess.Send(r.Context(), msg)
	if errors.Is(err, page.ErrNotLoaded) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, "deliver message: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	code := http.StatusOK
	if resp.Error != "" {
		code = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

type mutationRequest struct {
	Selector string `json:"selector"`
	HTML     string `json:"html"`
}

// handleMutation inserts content into the page as a page script would.
func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Selector == "" {
		req.Selector = "body"
	}
	n, err := sess.Mutate(r.Context(), req.Selector, req.HTML)
	switch {
	case errors.Is(err, page.ErrNoMatch):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, page.ErrInvalidTarget):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, "mutate page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"updated": n})
}

func (s *Server) handlePageStats(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		jsonError(w, "snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
