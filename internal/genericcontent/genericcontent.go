// Package genericcontent renders fragments with numbered placeholders
// ("<1>bold</1> and <2/>") and parses such text back into fragments.
package genericcontent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docloc/internal/resource"
)

// Mode selects how codes are rendered.
type Mode int

const (
	// Generic renders numbered placeholders.
	Generic Mode = iota
	// Original renders each code's data.
	Original
	// Outer renders each code's outer data, falling back to its data.
	Outer
)

// Format renders f in the generic form.
func Format(f *resource.TextFragment) string {
	return FormatMode(f, Generic)
}

// FormatMode renders f with codes shown according to mode.
func FormatMode(f *resource.TextFragment, mode Mode) string {
	isolated := IsolatedCodes(f)
	var sb strings.Builder
	text := []rune(f.CodedText())
	for i := 0; i < len(text); i++ {
		r := text[i]
		if !resource.IsMarker(r) {
			sb.WriteRune(r)
			continue
		}
		if i+1 >= len(text) {
			break
		}
		i++
		if r == resource.MarkerSegment {
			continue
		}
		idx := resource.MarkerIndex(text[i])
		c := f.Code(idx)
		if c == nil {
			continue
		}
		switch mode {
		case Original:
			sb.WriteString(c.Data)
		case Outer:
			sb.WriteString(c.Outer())
		default:
			sb.WriteString(Placeholder(c, isolated[idx]))
		}
	}
	return sb.String()
}

// Placeholder returns the generic form of one code. Isolated opening and
// closing codes (whose partner is not in the fragment) use <bN/> and
// <eN/>.
func Placeholder(c *resource.Code, isolated bool) string {
	id := strconv.Itoa(c.ID)
	switch c.TagType {
	case resource.Opening:
		if isolated {
			return "<b" + id + "/>"
		}
		return "<" + id + ">"
	case resource.Closing:
		if isolated {
			return "<e" + id + "/>"
		}
		return "</" + id + ">"
	default:
		return "<" + id + "/>"
	}
}

// IsolatedCodes flags, by code index, openings without a later closing
// and closings without an earlier opening.
func IsolatedCodes(f *resource.TextFragment) []bool {
	codes := f.Codes()
	iso := make([]bool, len(codes))
	taken := make([]bool, len(codes))
	for i, c := range codes {
		switch c.TagType {
		case resource.Opening:
			iso[i] = true
			for k := i + 1; k < len(codes); k++ {
				d := codes[k]
				if !taken[k] && d.TagType == resource.Closing && d.ID == c.ID {
					taken[k] = true
					iso[i] = false
					break
				}
			}
		case resource.Closing:
			if !taken[i] {
				iso[i] = true
			}
		}
	}
	return iso
}

var placeholderRE = regexp.MustCompile(`<(/?)(\d+)(/?)>|<([be])(\d+)/>`)

// Parse rebuilds a fragment from generic text. Every placeholder must
// match one of codes by id and tag type; the matching code is cloned into
// the result. Codes not mentioned in text are left out.
func Parse(text string, codes []*resource.Code) (*resource.TextFragment, error) {
	out := resource.NewTextFragment("")
	used := make([]bool, len(codes))
	last := 0
	for _, m := range placeholderRE.FindAllStringSubmatchIndex(text, -1) {
		out.Append(text[last:m[0]])
		last = m[1]

		var id int
		var tt resource.TagType
		if m[4] >= 0 {
			id, _ = strconv.Atoi(text[m[4]:m[5]])
			switch {
			case m[3] > m[2] && m[7] > m[6]:
				return nil, resource.Illegal("parse generic content", "malformed placeholder %q", text[m[0]:m[1]])
			case m[3] > m[2]:
				tt = resource.Closing
			case m[7] > m[6]:
				tt = resource.Placeholder
			default:
				tt = resource.Opening
			}
		} else {
			id, _ = strconv.Atoi(text[m[10]:m[11]])
			if text[m[8]:m[9]] == "b" {
				tt = resource.Opening
			} else {
				tt = resource.Closing
			}
		}

		found := -1
		for j, c := range codes {
			if !used[j] && c.ID == id && c.TagType == tt {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, resource.Illegal("parse generic content", "placeholder %q has no matching code", text[m[0]:m[1]])
		}
		used[found] = true
		out.AddCode(codes[found].Clone())
	}
	out.Append(text[last:])
	return out, nil
}

// ParseFor rebuilds a fragment from generic text using the codes of
// source.
func ParseFor(text string, source *resource.TextFragment) (*resource.TextFragment, error) {
	return Parse(text, source.Codes())
}
