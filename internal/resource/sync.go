package resource

// SynchronizeCodes renumbers the codes of f so that codes matching a code
// of source (same type and data) take that code's id.
//
// Target codes are walked in marker order. Each one first takes the
// left-most unused source code with the same tag type, type and data,
// then the left-most unused one with the same type and data. A closing
// code paired with an opening follows its opening: it takes the same id
// and the source partner of the matched opening is used up with it. Only
// unpaired closings are matched on their own. Anything left gets a fresh
// id above every id in use, assigned in walk order and shared with its
// partner.
func (f *TextFragment) SynchronizeCodes(source *TextFragment) {
	n := len(f.codes)
	if n == 0 {
		return
	}
	src := source.codes
	partner := f.pairPartners()
	srcPartner := source.pairPartners()
	used := make([]bool, len(src))
	matched := make([]bool, n)
	newID := make([]int, n)

	match := func(sameTag bool) {
		for i, t := range f.codes {
			if matched[i] || (t.TagType == Closing && partner[i] >= 0) {
				continue
			}
			for j, s := range src {
				if used[j] || s.Type != t.Type || s.Data != t.Data {
					continue
				}
				if sameTag && s.TagType != t.TagType {
					continue
				}
				used[j] = true
				matched[i] = true
				newID[i] = s.ID
				if p := partner[i]; p >= 0 && t.TagType == Opening {
					matched[p] = true
					newID[p] = s.ID
					if q := srcPartner[j]; q >= 0 {
						used[q] = true
					}
				}
				break
			}
		}
	}
	match(true)
	match(false)

	maxID := 0
	for _, s := range src {
		maxID = max(maxID, s.ID)
	}
	for i := range f.codes {
		if matched[i] {
			maxID = max(maxID, newID[i])
		}
	}
	fresh := make([]bool, n)
	for i := range f.codes {
		if matched[i] {
			continue
		}
		if p := partner[i]; p >= 0 && p < i && fresh[p] {
			newID[i] = newID[p]
		} else {
			maxID++
			newID[i] = maxID
		}
		fresh[i] = true
	}

	f.lastID = 0
	for i, c := range f.codes {
		c.ID = newID[i]
		f.noteID(c.ID)
	}
}

// pairPartners maps each opening code to its closing code (and back) by
// their shared id. Placeholders and unpaired codes map to -1.
func (f *TextFragment) pairPartners() []int {
	partner := make([]int, len(f.codes))
	for i := range partner {
		partner[i] = -1
	}
	for i, c := range f.codes {
		if c.TagType != Opening || partner[i] >= 0 {
			continue
		}
		for k := i + 1; k < len(f.codes); k++ {
			d := f.codes[k]
			if d.TagType == Closing && d.ID == c.ID && partner[k] < 0 {
				partner[i], partner[k] = k, i
				break
			}
		}
	}
	return partner
}
