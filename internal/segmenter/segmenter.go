// Package segmenter splits text units into sentence segments.
package segmenter

import (
	"fmt"
	"log/slog"
	"unicode"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/resource"
)

// Config controls segmentation behavior.
type Config struct {
	MinSegmentRunes int // Sentences with fewer text runes merge into the next one.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MinSegmentRunes: 0}
}

// Stats reports what one pass did.
type Stats struct {
	Units    int // Text units segmented.
	Segments int // Source segments created.
	Tokens   int // Estimated source tokens.
}

// Segmenter carves sentence segments into text containers.
type Segmenter struct {
	cfg Config
	log *slog.Logger
}

// New creates a segmenter.
func New(cfg Config, log *slog.Logger) *Segmenter {
	if cfg.MinSegmentRunes < 0 {
		cfg.MinSegmentRunes = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{cfg: cfg, log: log}
}

// Process segments every translatable text unit in events.
func (s *Segmenter) Process(events []event.Event) (Stats, error) {
	var st Stats
	for _, tu := range event.TextUnits(events) {
		n, err := s.SegmentUnit(tu)
		if err != nil {
			return st, err
		}
		if n > 0 {
			st.Units++
			st.Segments += n
			st.Tokens += EstimateTokens(tu.Source.Text())
		}
	}
	s.log.Debug("segmentation done", "units", st.Units, "segments", st.Segments)
	return st, nil
}

// SegmentUnit segments the source of tu and each of its targets. Containers
// that already have segments are left alone. It returns the number of
// source segments created.
func (s *Segmenter) SegmentUnit(tu *resource.TextUnit) (int, error) {
	if !tu.Translatable || tu.Source == nil {
		return 0, nil
	}
	n, err := s.segment(tu.Source)
	if err != nil {
		return 0, fmt.Errorf("segment %s source: %w", tu.ID, err)
	}
	for _, loc := range tu.TargetLocales() {
		if _, err := s.segment(tu.Target(loc)); err != nil {
			return 0, fmt.Errorf("segment %s target %s: %w", tu.ID, loc, err)
		}
	}
	return n, nil
}

func (s *Segmenter) segment(tc *resource.TextContainer) (int, error) {
	if tc == nil || tc.HasSegments() || tc.IsEmpty() {
		return 0, nil
	}
	ranges := s.Ranges(tc.TextFragment)
	if len(ranges) == 0 {
		return 0, nil
	}
	if err := tc.CreateSegments(ranges); err != nil {
		return 0, err
	}
	return len(ranges), nil
}

// Ranges returns the sentence ranges of f in coded-text positions. Space
// around sentences is left out of the ranges.
func (s *Segmenter) Ranges(f *resource.TextFragment) []resource.Range {
	text := []rune(f.CodedText())
	var ranges []resource.Range

	start := -1
	for i := 0; i < len(text); i++ {
		r := text[i]
		if resource.IsMarker(r) {
			if start < 0 {
				start = i
			}
			i++
			continue
		}
		if start < 0 {
			if unicode.IsSpace(r) {
				continue
			}
			start = i
		}
		if !isTerminator(r) {
			continue
		}
		end := i + 1
		for end < len(text) && isTerminator(text[end]) {
			end++
		}
		for end+1 < len(text) && text[end] == resource.MarkerClosing {
			end += 2
		}
		if end < len(text) && !unicode.IsSpace(text[end]) {
			i = end - 1
			continue
		}
		ranges = append(ranges, resource.Range{Start: start, End: end})
		start = -1
		i = end - 1
	}
	if start >= 0 {
		end := len(text)
		for end > start && unicode.IsSpace(text[end-1]) && !isIndexRune(text, end-1) {
			end--
		}
		if end > start {
			ranges = append(ranges, resource.Range{Start: start, End: end})
		}
	}
	return s.mergeShort(text, ranges)
}

// mergeShort joins sentences below the minimum length with their
// neighbor. The last sentence merges backwards.
func (s *Segmenter) mergeShort(text []rune, ranges []resource.Range) []resource.Range {
	if s.cfg.MinSegmentRunes <= 0 || len(ranges) < 2 {
		return ranges
	}
	var out []resource.Range
	for i := 0; i < len(ranges); i++ {
		cur := ranges[i]
		for textRunes(text, cur) < s.cfg.MinSegmentRunes && i+1 < len(ranges) {
			i++
			cur.End = ranges[i].End
		}
		if textRunes(text, cur) < s.cfg.MinSegmentRunes && len(out) > 0 {
			out[len(out)-1].End = cur.End
			continue
		}
		out = append(out, cur)
	}
	return out
}

func textRunes(text []rune, r resource.Range) int {
	n := 0
	for i := r.Start; i < r.End; i++ {
		if resource.IsMarker(text[i]) {
			i++
			continue
		}
		n++
	}
	return n
}

// isIndexRune reports whether text[i] is the index half of a marker pair.
func isIndexRune(text []rune, i int) bool {
	return i > 0 && resource.IsMarker(text[i-1]) && text[i] >= resource.IndexBase
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
