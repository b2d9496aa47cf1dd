// Package filters converts documents into event streams and provides the
// writers that turn those streams back into documents.
package filters

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/rawdoc"
)

// Filter reads one document format.
type Filter interface {
	Name() string
	MimeType() string
	Extensions() []string
	Open(doc *rawdoc.RawDocument) ([]event.Event, error)
	// NewWriter returns a writer for the format, or nil when the format is
	// extraction only.
	NewWriter() filterwriter.Writer
}

// registered lists every filter, in lookup order.
func registered(log *slog.Logger) []Filter {
	return []Filter{
		&PlainTextFilter{Log: log},
		&HTMLFilter{Log: log},
		&MarkdownFilter{Log: log},
		&XMLFilter{Log: log},
		&POFilter{Log: log},
		&CSVFilter{Log: log},
		&DOCXFilter{Log: log},
		&PDFFilter{Log: log},
	}
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = func() map[string]bool {
	m := make(map[string]bool)
	for _, f := range registered(nil) {
		for _, ext := range f.Extensions() {
			m[ext] = true
		}
	}
	return m
}()

// ForFile returns the filter for a filename.
func ForFile(filename string, log *slog.Logger) (Filter, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registered(log) {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported file extension: %s", ext)
}

// ByMimeType returns the filter for a MIME type.
func ByMimeType(mime string, log *slog.Logger) (Filter, error) {
	for _, f := range registered(log) {
		if f.MimeType() == mime {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unsupported mime type: %s", mime)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// rootID derives the id root of a document from its name.
func rootID(doc *rawdoc.RawDocument) string {
	name := strings.TrimSuffix(filepath.Base(doc.Name), filepath.Ext(doc.Name))
	if name == "" || name == "." {
		return "doc"
	}
	return name
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
