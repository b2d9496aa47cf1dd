package mt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/resource"
)

var (
	// ErrEmptyTranslation is returned for a blank reply to a non-blank source.
	ErrEmptyTranslation = errors.New("empty translation")
	// ErrCodeMismatch is returned when the reply's placeholders do not
	// match the source codes.
	ErrCodeMismatch = errors.New("placeholder mismatch")
	// ErrTooLong is returned for replies far longer than their source.
	ErrTooLong = errors.New("translation too long")
)

// MaxExpansion bounds the length of a translation relative to its source.
const MaxExpansion = 5

// BuildTarget turns a generic-form reply into a target fragment for
// source. The source's outer whitespace is restored, placeholder ids are
// checked against the source, and code data is copied from the source.
func BuildTarget(source *resource.TextFragment, reply string, log *slog.Logger, unitID string) (*resource.TextFragment, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, ErrEmptyTranslation
	}
	generic := genericcontent.Format(source)
	if n := utf8.RuneCountInString(generic); utf8.RuneCountInString(reply) > MaxExpansion*n+20 {
		return nil, fmt.Errorf("%w: %d runes for a %d rune source", ErrTooLong, utf8.RuneCountInString(reply), n)
	}
	lead, trail := outerSpace(generic)

	frag, err := genericcontent.ParseFor(lead+reply+trail, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeMismatch, err)
	}
	if err := checkCodes(source, frag); err != nil {
		return nil, err
	}
	frag.SynchronizeCodes(source)
	resource.AdjustTargetCodes(source, frag, log, unitID)
	return frag, nil
}

// checkCodes verifies that every required source code is in target and
// that no closing code precedes its opening.
func checkCodes(source, target *resource.TextFragment) error {
	type key struct {
		id int
		tt resource.TagType
	}
	present := make(map[key]int)
	open := make(map[int]int)
	var err error
	target.Markers(func(_ int, c *resource.Code) bool {
		present[key{c.ID, c.TagType}]++
		switch c.TagType {
		case resource.Opening:
			open[c.ID]++
		case resource.Closing:
			if open[c.ID] == 0 && source.CodeByID(c.ID, resource.Opening) != nil {
				err = fmt.Errorf("%w: closing code %d before its opening", ErrCodeMismatch, c.ID)
				return false
			}
			open[c.ID]--
		}
		return true
	})
	if err != nil {
		return err
	}
	for _, c := range source.Codes() {
		k := key{c.ID, c.TagType}
		if present[k] > 0 {
			present[k]--
			continue
		}
		if !c.Deleteable {
			return fmt.Errorf("%w: code %d (%s) missing", ErrCodeMismatch, c.ID, c.TagType)
		}
	}
	return nil
}

func outerSpace(s string) (lead, trail string) {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(trimmed)]
	if trimmed == "" {
		return lead, ""
	}
	rest := strings.TrimRightFunc(trimmed, unicode.IsSpace)
	return lead, trimmed[len(rest):]
}
