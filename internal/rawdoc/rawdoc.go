// Package rawdoc holds an input document before a filter reads it and
// decodes its bytes to UTF-8.
package rawdoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/dgallion1/docloc/internal/locale"
)

// DefaultEncoding is assumed when nothing is declared or detected.
const DefaultEncoding = "UTF-8"

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// RawDocument is the input to a filter.
type RawDocument struct {
	Name         string
	Data         []byte
	SourceLocale locale.ID
	TargetLocale locale.ID
	// Encoding is the declared encoding. Empty means detect.
	Encoding string
	MimeType string
}

// New wraps data.
func New(name string, data []byte, source locale.ID) *RawDocument {
	return &RawDocument{Name: name, Data: data, SourceLocale: source}
}

// FromReader reads all of r.
func FromReader(r io.Reader, name string, source locale.ID) (*RawDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return New(name, data, source), nil
}

// Open reads the file at path.
func Open(path string, source locale.ID) (*RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return New(filepath.Base(path), data, source), nil
}

// Ext returns the lower-cased file extension of the document name.
func (d *RawDocument) Ext() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// Reader returns a reader over the raw bytes.
func (d *RawDocument) Reader() *bytes.Reader {
	return bytes.NewReader(d.Data)
}

// Decoded is the document text converted to UTF-8.
type Decoded struct {
	Text     string
	Encoding string
	HasBOM   bool
	// LineBreak is the first line break found, "\n" when there is none.
	LineBreak string
}

// Decode converts the document to UTF-8. A byte-order mark wins over the
// declared encoding, which wins over sniffing for HTML documents.
func (d *RawDocument) Decode() (*Decoded, error) {
	data := d.Data
	out := &Decoded{}
	name := d.Encoding
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data, name, out.HasBOM = data[len(bomUTF8):], "UTF-8", true
	case bytes.HasPrefix(data, bomUTF16LE):
		data, name, out.HasBOM = data[len(bomUTF16LE):], "UTF-16LE", true
	case bytes.HasPrefix(data, bomUTF16BE):
		data, name, out.HasBOM = data[len(bomUTF16BE):], "UTF-16BE", true
	case name == "" && d.MimeType == "text/html":
		_, sniffed, _ := charset.DetermineEncoding(data, d.MimeType)
		name = sniffed
	}
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	text := data
	if !isUTF8(enc) {
		if text, err = enc.NewDecoder().Bytes(data); err != nil {
			return nil, fmt.Errorf("decode %s as %s: %w", d.Name, name, err)
		}
	} else if !utf8.Valid(text) {
		return nil, fmt.Errorf("decode %s: invalid UTF-8", d.Name)
	}
	out.Text = string(text)
	out.Encoding = canonical(name)
	out.LineBreak = lineBreak(out.Text)
	return out, nil
}

// Lookup resolves an encoding label such as "ISO-8859-1" or "utf-8" by
// its IANA registration, so ISO-8859-1 stays Latin-1. Labels IANA does not
// know, such as "latin1" or "sjis", fall back to the WHATWG index.
func Lookup(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc != nil {
		return enc, nil
	}
	if enc, herr := htmlindex.Get(name); herr == nil {
		return enc, nil
	}
	if err == nil {
		err = fmt.Errorf("not supported")
	}
	return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
}

func isUTF8(enc encoding.Encoding) bool {
	return enc == unicode.UTF8
}

// IsUTF8 reports whether name labels UTF-8.
func IsUTF8(name string) bool {
	enc, err := Lookup(name)
	return err == nil && isUTF8(enc)
}

func canonical(name string) string {
	if IsUTF8(name) {
		return "UTF-8"
	}
	return strings.ToUpper(name)
}

func lineBreak(s string) string {
	i := strings.IndexAny(s, "\r\n")
	switch {
	case i < 0:
		return "\n"
	case s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n':
		return "\r\n"
	case s[i] == '\r':
		return "\r"
	}
	return "\n"
}
