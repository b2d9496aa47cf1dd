package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docloc/internal/leverage"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/pipeline"
)

// handleExtract returns a gettext catalogue of the document's translatable
// units, prefilled from an optional catalogue.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	annotate(r, "filename", filename)
	defer r.MultipartForm.RemoveAll()

	src, tgt, err := s.locales(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := pipeline.Request{
		Name:    filename,
		Data:    data,
		Source:  src,
		Target:  tgt,
		Segment: formBool(r, "segment", false),
	}
	catalog, err := s.readCatalog(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if catalog != nil {
		if req.Catalog, err = leverage.ParseCatalog(catalog); err != nil {
			jsonError(w, "invalid catalogue: "+err.Error(), http.StatusBadRequest)
			return
		}
		if tgt.IsEmpty() {
			tgt = req.Catalog.Locale
			req.Target = tgt
		}
	}

	doc, _, err := s.orchestrator.Processor().Process(r.Context(), req, nil)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	out, err := doc.ExtractPO(tgt, s.log)
	if err != nil {
		s.log.Error("extract failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeFile(w, doc.CatalogName(tgt), out)
}

// handleRoundTrip parses the document and writes it back without targets.
// The X-Roundtrip-Identical header reports whether the bytes match.
func (s *Server) handleRoundTrip(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	annotate(r, "filename", filename)
	defer r.MultipartForm.RemoveAll()

	doc, err := s.orchestrator.Processor().Open(filename, data, s.cfg.Source(), locale.Empty)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	out, err := doc.Write(locale.Empty)
	if errors.Is(err, pipeline.ErrExtractionOnly) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		s.log.Error("roundtrip failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Roundtrip-Identical", strconv.FormatBool(bytes.Equal(out, data)))
	writeFile(w, doc.OutputName(locale.Empty), out)
}
