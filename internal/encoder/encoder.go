// Package encoder escapes text for the output format and maps normalised
// property values back to their native form.
package encoder

import (
	"strings"
)

// Context tells an encoder where the text will land.
type Context int

const (
	// Text is element or paragraph content.
	Text Context = iota
	// Attribute is a quoted attribute or property value.
	Attribute
	// Skeleton is raw structure; encoders leave it alone.
	Skeleton
)

// Normalised property names understood by every encoder.
const (
	PropEncoding = "encoding"
	PropLanguage = "language"
)

// Encoder escapes text for one output format.
type Encoder interface {
	Encode(text string, ctx Context) string
	// ToNative converts a normalised property value to the format's own
	// spelling.
	ToNative(property, value string) string
}

// Default passes text through unchanged.
type Default struct{}

func (Default) Encode(text string, _ Context) string { return text }

func (Default) ToNative(_, value string) string { return value }

var xmlText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
var xmlAttr = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// XML escapes markup characters, and quotes in attributes.
type XML struct{}

func (XML) Encode(text string, ctx Context) string {
	switch ctx {
	case Skeleton:
		return text
	case Attribute:
		return xmlAttr.Replace(text)
	}
	return xmlText.Replace(text)
}

func (XML) ToNative(_, value string) string { return value }

var nbsp = strings.NewReplacer("\u00a0", "&nbsp;")

// HTML escapes like XML and writes no-break spaces as &nbsp;.
type HTML struct{ XML }

func (h HTML) Encode(text string, ctx Context) string {
	if ctx == Skeleton {
		return text
	}
	return nbsp.Replace(h.XML.Encode(text, ctx))
}

var poQuoted = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\a", `\a`,
	"\b", `\b`,
	"\f", `\f`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\v", `\v`,
)

// PO escapes text for a double-quoted gettext string. In text context a
// line break followed by more text also ends the quoted line, the way
// gettext tools lay out multi-line strings.
type PO struct{}

func (PO) Encode(text string, ctx Context) string {
	switch ctx {
	case Skeleton:
		return text
	case Attribute:
		return poQuoted.Replace(text)
	}
	lines := strings.SplitAfter(text, "\n")
	for i, l := range lines {
		lines[i] = poQuoted.Replace(l)
	}
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines[n-2] += lines[n-1]
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\"\n\"")
}

// ToNative uses underscores in language names, as gettext headers do.
func (PO) ToNative(property, value string) string {
	if property == PropLanguage {
		return strings.ReplaceAll(value, "-", "_")
	}
	return value
}

// CSV escapes cell values. Attribute context is a cell already between
// quotes, so quotes are doubled. Text context is a bare cell, which gets
// quoted when it holds the delimiter, a quote or a line break.
type CSV struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

func (c CSV) Encode(text string, ctx Context) string {
	switch ctx {
	case Skeleton:
		return text
	case Attribute:
		return strings.ReplaceAll(text, `"`, `""`)
	}
	if !c.NeedsQuotes(text) {
		return text
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

// NeedsQuotes reports whether a bare cell holding text must be quoted.
func (c CSV) NeedsQuotes(text string) bool {
	comma := c.Comma
	if comma == 0 {
		comma = ','
	}
	return strings.ContainsRune(text, comma) || strings.ContainsAny(text, "\"\r\n")
}

func (CSV) ToNative(_, value string) string { return value }

// ForMimeType returns the encoder for a MIME type, falling back to
// Default.
func ForMimeType(mime string) Encoder {
	switch mime {
	case "text/html", "application/xhtml+xml":
		return HTML{}
	case "text/xml", "application/xml":
		return XML{}
	case "application/x-gettext":
		return PO{}
	case "text/csv":
		return CSV{}
	}
	return Default{}
}
