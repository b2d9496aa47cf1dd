// Package mt translates text units through a language model.
package mt

import (
	"context"
	"log/slog"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/leverage"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
	"github.com/dgallion1/docloc/internal/segmenter"
)

// OriginMT marks targets produced by machine translation.
const OriginMT = "mt"

// Item is one piece of text sent to or received from the model.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Request is one batch of items to translate.
type Request struct {
	Document string
	Source   locale.ID
	Target   locale.ID
	Items    []Item
}

// Translator translates a batch of items.
type Translator interface {
	Translate(ctx context.Context, req Request) ([]Item, error)
}

// Pending returns the translatable units of events that have visible
// source text and no non-empty target for loc.
func Pending(events []event.Event, loc locale.ID) []*resource.TextUnit {
	var out []*resource.TextUnit
	for _, tu := range event.TextUnits(events) {
		if !tu.Translatable || !tu.Source.Unsegmented().HasText(false) {
			continue
		}
		if tc := tu.Target(loc); tc != nil && tc.Unsegmented().HasText(false) {
			continue
		}
		out = append(out, tu)
	}
	return out
}

// Batches groups units so each batch stays under maxTokens estimated
// source tokens. A unit larger than the limit gets a batch of its own.
func Batches(units []*resource.TextUnit, maxTokens int) [][]*resource.TextUnit {
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	var out [][]*resource.TextUnit
	var cur []*resource.TextUnit
	curTokens := 0
	for _, tu := range units {
		n := segmenter.EstimateTokens(tu.Source.Text())
		if curTokens+n > maxTokens && len(cur) > 0 {
			out = append(out, cur)
			cur = nil
			curTokens = 0
		}
		cur = append(cur, tu)
		curTokens += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// NewRequest builds the request for a batch.
func NewRequest(document string, source, target locale.ID, units []*resource.TextUnit) Request {
	req := Request{Document: document, Source: source, Target: target}
	for _, tu := range units {
		req.Items = append(req.Items, Item{
			ID:   tu.ID,
			Text: genericcontent.Format(tu.Source.Unsegmented()),
		})
	}
	return req
}

// Result counts what Apply did with a reply.
type Result struct {
	Translated int
	Rejected   int
	Missing    int
}

// Apply sets the targets of units from reply items. Items are matched by
// id; units without a usable item keep no target.
func Apply(units []*resource.TextUnit, items []Item, loc locale.ID, log *slog.Logger) Result {
	if log == nil {
		log = slog.Default()
	}
	byID := make(map[string]string, len(items))
	for _, it := range items {
		byID[it.ID] = it.Text
	}

	var res Result
	for _, tu := range units {
		text, ok := byID[tu.ID]
		if !ok {
			res.Missing++
			continue
		}
		src := tu.Source.Unsegmented()
		frag, err := BuildTarget(src, text, log, tu.ID)
		if err != nil {
			log.Warn("translation rejected", "unit_id", tu.ID, "error", err)
			res.Rejected++
			continue
		}
		tc := resource.NewTextContainerFrom(frag)
		tc.Properties = tu.Source.Properties.Clone()
		tu.SetTarget(loc, tc)
		tu.SetTargetProperty(loc, resource.NewProperty(leverage.PropLeveraged, OriginMT, false))
		res.Translated++
	}
	return res
}
