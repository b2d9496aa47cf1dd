package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docloc/internal/filters"
	"github.com/dgallion1/docloc/internal/leverage"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/pipeline"
)

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, tgt, err := s.locales(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	catalog, err := s.readCatalog(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if catalog != nil {
		cat, err := leverage.ParseCatalog(catalog)
		if err != nil {
			jsonError(w, "invalid catalogue: "+err.Error(), http.StatusBadRequest)
			return
		}
		if tgt.IsEmpty() {
			tgt = cat.Locale
		}
	}
	if tgt.IsEmpty() {
		jsonError(w, "target is required", http.StatusBadRequest)
		return
	}

	useMT := formBool(r, "mt", s.cfg.MTEnabled)
	if useMT && s.orchestrator.Processor().Translator == nil {
		jsonError(w, "machine translation is not enabled", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(filename, data, pipeline.Options{
		Source:  src,
		Target:  tgt,
		Segment: formBool(r, "segment", s.cfg.Segment),
		MT:      useMT,
		Catalog: catalog,
	})
	annotate(r, "job_id", job.ID, "filename", filename, "source", src.String(), "target", tgt.String(), "mt", useMT)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":       job.ID,
		"content_hash": job.ContentHash,
		"status":       pipeline.StatusQueued,
		"poll_url":     fmt.Sprintf("/api/jobs/%s", job.ID),
		"result_url":   fmt.Sprintf("/api/jobs/%s/result", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	annotate(r, "job_status", snap.Status)
	switch {
	case !snap.Status.Done():
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	case snap.Status == pipeline.StatusFailed:
		jsonError(w, "job failed: "+strings.Join(snap.Progress.Errors, "; "), http.StatusConflict)
		return
	}
	name, data := job.Result()
	writeFile(w, name, data)
}

// readDocument parses the multipart form and reads the "file" part. It
// writes the error response itself and reports whether the handler should
// go on.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	// Extra 1MB for form overhead and an optional catalogue.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	fail := func(msg string, code int) (string, []byte, bool) {
		r.MultipartForm.RemoveAll()
		jsonError(w, msg, code)
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return fail("file is required: "+err.Error(), http.StatusBadRequest)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !filters.IsSupportedExtension(filename) {
		return fail(fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return fail("failed to read file", http.StatusInternalServerError)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return fail(fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
	}
	return filename, data, true
}

// readCatalog reads the optional "catalog" part. It returns nil when the
// part is absent.
func (s *Server) readCatalog(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("catalog")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("catalogue exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, nil
}

// locales reads the source and target form values, falling back to the
// configured defaults.
func (s *Server) locales(r *http.Request) (src, tgt locale.ID, err error) {
	src, tgt = s.cfg.Source(), s.cfg.Target()
	if v := r.FormValue("source"); v != "" {
		if src, err = locale.Parse(v); err != nil {
			return "", "", err
		}
	}
	if v := r.FormValue("target"); v != "" {
		if tgt, err = locale.Parse(v); err != nil {
			return "", "", err
		}
	}
	return src, tgt, nil
}

func formBool(r *http.Request, key string, fallback bool) bool {
	if v := r.FormValue(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func writeFile(w http.ResponseWriter, name string, data []byte) {
	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Write(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
