package skeleton

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
)

// MaxReferenceDepth bounds how deeply references may nest before the
// writer gives up on a cycle.
const MaxReferenceDepth = 32

// ValueRewriter maps a property value to what the output should carry.
type ValueRewriter func(value string) string

// refPattern matches the [#$id] reference markers codes carry in their
// data when HasReference is set.
var refPattern = regexp.MustCompile(`\[#\$([^\]@]+)\]`)

// group collects a referent group until its ending arrives.
type group struct {
	start *resource.StartGroup
	items []resource.Resource
	end   *resource.Ending
	depth int
}

func (g *group) Kind() resource.Kind            { return resource.KindStartGroup }
func (g *group) Base() *resource.BaseResource { return g.start.Base() }

// Writer turns resources and their skeletons into output text for one
// output locale.
type Writer struct {
	// GenericCodes writes codes as numbered placeholders instead of their
	// data.
	GenericCodes bool

	log          *slog.Logger
	// wantLoc and wantEncoding are the configured values; empty ones fall
	// back to each document's own.
	wantLoc      locale.ID
	wantEncoding string
	outputLoc    locale.ID
	sourceLoc    locale.ID
	encoding     string
	multilingual bool
	enc          encoder.Encoder
	rewriters    map[string]ValueRewriter

	referents map[resource.Handle]resource.Resource
	byID      map[string]resource.Handle
	storage   []*group
	depth     int
}

// NewWriter returns a writer for outputLoc and encoding. A nil encoder
// writes text unchanged.
func NewWriter(outputLoc locale.ID, encoding string, enc encoder.Encoder, log *slog.Logger) *Writer {
	if enc == nil {
		enc = encoder.Default{}
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Writer{
		log:          log,
		wantLoc:      outputLoc,
		wantEncoding: encoding,
		outputLoc:    outputLoc,
		encoding:     encoding,
		enc:          enc,
		rewriters:    make(map[string]ValueRewriter),
	}
	w.reset()
	return w
}

func (w *Writer) reset() {
	w.referents = make(map[resource.Handle]resource.Resource)
	w.byID = make(map[string]resource.Handle)
	w.storage = nil
	w.depth = 0
}

// SetEncoder replaces the encoder.
func (w *Writer) SetEncoder(enc encoder.Encoder) {
	if enc != nil {
		w.enc = enc
	}
}

// RegisterValueRewriter installs fn for property name, overriding the
// built-in rewriters for the encoding and language properties.
func (w *Writer) RegisterValueRewriter(name string, fn ValueRewriter) {
	w.rewriters[name] = fn
}

// OutputLocale returns the locale the writer produces.
func (w *Writer) OutputLocale() locale.ID { return w.outputLoc }

// Encoding returns the output encoding.
func (w *Writer) Encoding() string { return w.encoding }

func (w *Writer) rewrite(name, value string) string {
	if fn, ok := w.rewriters[name]; ok {
		return fn(value)
	}
	switch name {
	case encoder.PropEncoding:
		if w.encoding != "" && !strings.EqualFold(value, w.encoding) {
			return w.encoding
		}
	case encoder.PropLanguage:
		if id, err := locale.Parse(value); !w.outputLoc.IsEmpty() && (err != nil || id != w.outputLoc) {
			return w.outputLoc.String()
		}
	}
	return value
}

// ProcessStartDocument records the document's locale and layout and
// writes its skeleton.
func (w *Writer) ProcessStartDocument(sd *resource.StartDocument) (string, error) {
	w.reset()
	w.sourceLoc = sd.Locale
	w.multilingual = sd.Multilingual
	w.encoding = w.wantEncoding
	if w.encoding == "" {
		w.encoding = sd.Encoding
	}
	w.outputLoc = w.wantLoc
	if w.outputLoc.IsEmpty() {
		w.outputLoc = sd.Locale
	}
	return w.write(sd)
}

// ProcessEndDocument writes the document's closing skeleton and forgets
// all referents.
func (w *Writer) ProcessEndDocument(e *resource.Ending) (string, error) {
	out, err := w.write(e)
	w.reset()
	return out, err
}

// ProcessStartSubDocument writes a sub-document opening.
func (w *Writer) ProcessStartSubDocument(s *resource.StartSubDocument) (string, error) {
	return w.write(s)
}

// ProcessEndSubDocument writes a sub-document ending.
func (w *Writer) ProcessEndSubDocument(e *resource.Ending) (string, error) {
	return w.write(e)
}

// ProcessStartGroup writes a group opening. Referent groups, and
// everything inside them, are held back until referenced.
func (w *Writer) ProcessStartGroup(sg *resource.StartGroup) (string, error) {
	if sg.IsReferent {
		g := &group{start: sg}
		w.storage = append(w.storage, g)
		w.remember(g)
		return "", nil
	}
	if top := w.top(); top != nil {
		top.items = append(top.items, sg)
		top.depth++
		return "", nil
	}
	return w.write(sg)
}

// ProcessEndGroup writes a group ending, or closes the referent group
// being collected.
func (w *Writer) ProcessEndGroup(e *resource.Ending) (string, error) {
	if top := w.top(); top != nil {
		if top.depth > 0 {
			top.depth--
			top.items = append(top.items, e)
			return "", nil
		}
		top.end = e
		w.storage = w.storage[:len(w.storage)-1]
		return "", nil
	}
	return w.write(e)
}

// ProcessTextUnit writes a text unit, or stores it when it is a referent.
func (w *Writer) ProcessTextUnit(tu *resource.TextUnit) (string, error) {
	return w.process(tu)
}

// ProcessDocumentPart writes a document part, or stores it when it is a
// referent.
func (w *Writer) ProcessDocumentPart(dp *resource.DocumentPart) (string, error) {
	return w.process(dp)
}

func (w *Writer) process(r resource.Resource) (string, error) {
	if r.Base().IsReferent {
		w.remember(r)
		return "", nil
	}
	if top := w.top(); top != nil {
		top.items = append(top.items, r)
		return "", nil
	}
	return w.write(r)
}

func (w *Writer) top() *group {
	if len(w.storage) == 0 {
		return nil
	}
	return w.storage[len(w.storage)-1]
}

func (w *Writer) remember(r resource.Resource) {
	h := resource.HandleOf(r)
	w.referents[h] = r
	w.byID[h.ID] = h
}

// lookup returns the referent named by h, consuming one use of it.
func (w *Writer) lookup(h resource.Handle) resource.Resource {
	r, ok := w.referents[h]
	if !ok {
		if alt, found := w.byID[h.ID]; found {
			r, ok = w.referents[alt], true
			h = alt
		}
	}
	if !ok || r == nil {
		return nil
	}
	b := r.Base()
	if b.ReferenceCount > 0 {
		b.ReferenceCount--
		if b.ReferenceCount == 0 {
			delete(w.referents, h)
			delete(w.byID, h.ID)
		}
	}
	return r
}

// resolve finds the resource a part refers to. owner is the resource
// whose skeleton is being written.
func (w *Writer) resolve(h resource.Handle, owner resource.Resource) resource.Resource {
	if h.IsZero() {
		return owner
	}
	if owner != nil && resource.HandleOf(owner) == h {
		return owner
	}
	if r, ok := w.referents[h]; ok {
		return r
	}
	if alt, ok := w.byID[h.ID]; ok {
		return w.referents[alt]
	}
	return nil
}

func (w *Writer) write(r resource.Resource) (string, error) {
	skel := r.Base().Skeleton
	if skel == nil {
		if tu, ok := r.(*resource.TextUnit); ok {
			return w.content(tu, locale.Empty, encoder.Text)
		}
		return "", nil
	}
	gs, ok := skel.(*Skeleton)
	if !ok {
		return "", resource.Illegal("write skeleton", "resource %s carries a %T skeleton", resource.HandleOf(r), skel)
	}
	return w.render(gs, r)
}

func (w *Writer) render(s *Skeleton, owner resource.Resource) (string, error) {
	var sb strings.Builder
	for _, p := range s.parts {
		switch p.Kind {
		case Literal:
			sb.WriteString(p.Data)
		case Content:
			target := w.resolve(p.Owner, owner)
			tu, ok := target.(*resource.TextUnit)
			if !ok {
				w.log.Warn("content placeholder without text unit", "owner", p.Owner.String())
				continue
			}
			out, err := w.content(tu, p.Locale, encoder.Text)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		case Value:
			target := w.resolve(p.Owner, owner)
			if target == nil {
				w.log.Warn("value placeholder with unknown owner", "owner", p.Owner.String(), "property", p.Property)
				continue
			}
			sb.WriteString(w.value(target, p))
		case Reference:
			out, err := w.reference(p.Owner)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
	}
	return sb.String(), nil
}

// contentLocale picks the locale a placeholder reads. An empty result
// means the source.
func (w *Writer) contentLocale(partLoc locale.ID) locale.ID {
	if !w.multilingual {
		if w.outputLoc == w.sourceLoc {
			return locale.Empty
		}
		return w.outputLoc
	}
	if partLoc.IsEmpty() || partLoc == w.sourceLoc {
		return locale.Empty
	}
	return partLoc
}

func (w *Writer) content(tu *resource.TextUnit, partLoc locale.ID, ctx encoder.Context) (string, error) {
	tc := tu.Source
	if loc := w.contentLocale(partLoc); !loc.IsEmpty() && tu.Translatable {
		if t := tu.Target(loc); t != nil {
			tc = t
		}
	}
	return w.fragment(tc.Unsegmented(), ctx)
}

func (w *Writer) fragment(f *resource.TextFragment, ctx encoder.Context) (string, error) {
	var sb strings.Builder
	var isolated []bool
	if w.GenericCodes {
		isolated = genericcontent.IsolatedCodes(f)
	}
	text := []rune(f.CodedText())
	start := 0
	flush := func(end int) {
		if end > start {
			sb.WriteString(w.enc.Encode(string(text[start:end]), ctx))
		}
	}
	for i := 0; i < len(text); i++ {
		if !resource.IsMarker(text[i]) {
			continue
		}
		flush(i)
		start = i + 2
		if text[i] == resource.MarkerSegment || i+1 >= len(text) {
			i++
			continue
		}
		idx := resource.MarkerIndex(text[i+1])
		c := f.Code(idx)
		i++
		if c == nil {
			continue
		}
		if w.GenericCodes {
			sb.WriteString(genericcontent.Placeholder(c, isolated[idx]))
			continue
		}
		data := c.Data
		if c.HasReference {
			var err error
			if data, err = w.expand(data); err != nil {
				return "", err
			}
		}
		sb.WriteString(data)
	}
	flush(len(text))
	return sb.String(), nil
}

// expand replaces the reference markers in code data with the referents
// they name.
func (w *Writer) expand(data string) (string, error) {
	var firstErr error
	out := refPattern.ReplaceAllStringFunc(data, func(m string) string {
		if firstErr != nil {
			return m
		}
		id := refPattern.FindStringSubmatch(m)[1]
		h, ok := w.byID[id]
		if !ok {
			w.log.Warn("reference to unknown resource", "id", id)
			return ""
		}
		s, err := w.reference(h)
		if err != nil {
			firstErr = err
			return m
		}
		return s
	})
	return out, firstErr
}

func (w *Writer) reference(h resource.Handle) (string, error) {
	if w.depth >= MaxReferenceDepth {
		return "", resource.Illegal("write reference", "references nest deeper than %d at %s", MaxReferenceDepth, h)
	}
	r := w.lookup(h)
	if r == nil {
		w.log.Warn("reference to unknown resource", "ref", h.String())
		return "", nil
	}
	w.depth++
	defer func() { w.depth-- }()
	return w.referent(r)
}

func (w *Writer) referent(r resource.Resource) (string, error) {
	switch v := r.(type) {
	case *group:
		var sb strings.Builder
		parts := append([]resource.Resource{v.start}, v.items...)
		if v.end != nil {
			parts = append(parts, v.end)
		}
		for _, item := range parts {
			out, err := w.referent(item)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
		return sb.String(), nil
	case *resource.TextUnit:
		if v.Skeleton == nil {
			return w.content(v, w.outputLoc, encoder.Attribute)
		}
	}
	return w.write(r)
}

func (w *Writer) value(target resource.Resource, p *Part) string {
	var prop *resource.Property
	if p.Scope == ScopeResource {
		prop = target.Base().Properties.Get(p.Property)
	} else if loc := w.contentLocale(p.Locale); !loc.IsEmpty() {
		prop = targetProperty(target, loc, p.Property)
		if prop == nil {
			prop = sourceProperty(target, p.Property)
		}
	} else {
		prop = sourceProperty(target, p.Property)
	}
	if prop == nil {
		w.log.Warn("missing property", "resource", resource.HandleOf(target).String(), "property", p.Property)
		return ""
	}
	return w.enc.ToNative(p.Property, w.rewrite(p.Property, prop.Value))
}

func sourceProperty(r resource.Resource, name string) *resource.Property {
	if tu, ok := r.(*resource.TextUnit); ok {
		return tu.SourceProperty(name)
	}
	return r.Base().SourceProperties.Get(name)
}

func targetProperty(r resource.Resource, loc locale.ID, name string) *resource.Property {
	if tu, ok := r.(*resource.TextUnit); ok {
		return tu.TargetProperty(loc, name)
	}
	return r.Base().TargetProperty(loc, name)
}
