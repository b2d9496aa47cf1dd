// Package locale provides normalised BCP-47 locale identifiers.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ID is a canonical BCP-47 tag such as "fr-CA". The zero value means
// "no locale" and is used wherever the source content is meant.
type ID string

// Empty is the zero ID.
const Empty ID = ""

// Parse canonicalises s. Underscores are accepted as separators so that
// gettext-style names ("pt_BR") work too.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Empty, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return Empty, fmt.Errorf("parse locale %q: %w", s, err)
	}
	return ID(tag.String()), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsEmpty reports whether the id is the zero value.
func (id ID) IsEmpty() bool { return id == Empty }

func (id ID) String() string { return string(id) }

// Tag returns the language.Tag for id, or language.Und when empty.
func (id ID) Tag() language.Tag {
	if id == Empty {
		return language.Und
	}
	tag, err := language.Parse(string(id))
	if err != nil {
		return language.Und
	}
	return tag
}

// Language returns the base language subtag ("fr" for "fr-CA").
func (id ID) Language() string {
	base, _ := id.Tag().Base()
	return base.String()
}

// POName returns the gettext form of the id ("pt_BR").
func (id ID) POName() string {
	return strings.ReplaceAll(string(id), "-", "_")
}

// SameLanguage reports whether both ids share a base language.
func (id ID) SameLanguage(other ID) bool {
	if id == Empty || other == Empty {
		return id == other
	}
	return id.Language() == other.Language()
}

// Match returns the entry of supported that best fits want, and false when
// the matcher has no confident answer.
func Match(want ID, supported []ID) (ID, bool) {
	if len(supported) == 0 {
		return Empty, false
	}
	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = s.Tag()
	}
	_, idx, conf := language.NewMatcher(tags).Match(want.Tag())
	if conf == language.No {
		return Empty, false
	}
	return supported[idx], true
}
