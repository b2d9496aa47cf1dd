package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/leverage"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/mt"
	"github.com/dgallion1/docloc/internal/pipeline"
	"github.com/dgallion1/docloc/internal/segmenter"
)

// ErrRoundTripDiffers is returned when a rewritten document does not match
// its input byte for byte.
var ErrRoundTripDiffers = errors.New("round trip output differs from input")

// ExtractCmd writes a PO catalogue for a document.
type ExtractCmd struct {
	File    string `arg:"" help:"Document to extract" type:"existingfile"`
	Source  string `help:"Source locale (default from config)"`
	Target  string `short:"t" help:"Target locale of the catalogue"`
	Catalog string `help:"Existing catalogue used to prefill translations" type:"existingfile"`
	Segment bool   `help:"Split units into sentences before extracting"`
	Out     string `short:"o" help:"Output file (default stdout)" type:"path"`
}

func (c *ExtractCmd) Run(env *Env) error {
	cat, err := loadCatalog(c.Catalog)
	if err != nil {
		return err
	}
	src, tgt, err := env.locales(c.Source, c.Target, cat)
	if err != nil {
		return err
	}
	doc, _, err := env.process(context.Background(), nil, c.File, pipeline.Request{
		Source:  src,
		Target:  tgt,
		Segment: c.Segment,
		Catalog: cat,
	})
	if err != nil {
		return err
	}
	out, err := doc.ExtractPO(tgt, env.Log)
	if err != nil {
		return err
	}
	return env.output(c.Out, out)
}

// MergeCmd writes a translated document.
type MergeCmd struct {
	File      string `arg:"" help:"Document to translate" type:"existingfile"`
	Source    string `help:"Source locale (default from config)"`
	Target    string `short:"t" help:"Target locale (default from config or catalogue)"`
	Catalog   string `help:"PO catalogue to leverage" type:"existingfile"`
	MT        bool   `name:"mt" help:"Machine translate what the catalogue does not cover"`
	NoSegment bool   `help:"Leverage and translate whole units only"`
	Out       string `short:"o" help:"Output file (default next to the input)" type:"path"`
}

func (c *MergeCmd) Run(env *Env) error {
	cat, err := loadCatalog(c.Catalog)
	if err != nil {
		return err
	}
	src, tgt, err := env.locales(c.Source, c.Target, cat)
	if err != nil {
		return err
	}
	if tgt.IsEmpty() {
		return fmt.Errorf("a target locale is required")
	}
	tr, err := env.translator(c.MT)
	if err != nil {
		return err
	}
	out := c.Out
	_, err = env.merge(context.Background(), tr, c.File, pipeline.Request{
		Source:  src,
		Target:  tgt,
		Segment: !c.NoSegment,
		MT:      c.MT,
		Catalog: cat,
	}, func(doc *pipeline.Document) string {
		if out != "" {
			return out
		}
		return filepath.Join(filepath.Dir(c.File), doc.OutputName(tgt))
	})
	return err
}

// RoundTripCmd rewrites a document without targets and compares the bytes.
type RoundTripCmd struct {
	File string `arg:"" help:"Document to check" type:"existingfile"`
	Out  string `short:"o" help:"Also write the rewritten document here" type:"path"`
}

func (c *RoundTripCmd) Run(env *Env) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	doc, err := env.processor(nil).Open(c.File, data, env.Cfg.Source(), locale.Empty)
	if err != nil {
		return err
	}
	out, err := doc.Write(locale.Empty)
	if err != nil {
		return err
	}
	if c.Out != "" {
		if err := os.WriteFile(c.Out, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", c.Out, err)
		}
	}
	if string(out) != string(data) {
		return fmt.Errorf("%s: %w", c.File, ErrRoundTripDiffers)
	}
	fmt.Fprintf(env.Stdout, "%s: identical (%d units)\n", c.File, len(event.TextUnits(doc.Events)))
	return nil
}

// SegmentCmd prints one line per segment: unit id, segment id and the
// quoted generic text.
type SegmentCmd struct {
	File            string `arg:"" help:"Document to segment" type:"existingfile"`
	Source          string `help:"Source locale (default from config)"`
	MinSegmentRunes int    `help:"Merge segments shorter than this many letters (default from config)" default:"-1"`
}

func (c *SegmentCmd) Run(env *Env) error {
	src, _, err := env.locales(c.Source, "", nil)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	doc, err := env.processor(nil).Open(c.File, data, src, locale.Empty)
	if err != nil {
		return err
	}
	cfg := segmenter.Config{MinSegmentRunes: env.Cfg.MinSegmentRunes}
	if c.MinSegmentRunes >= 0 {
		cfg.MinSegmentRunes = c.MinSegmentRunes
	}
	if _, err := segmenter.New(cfg, env.Log).Process(doc.Events); err != nil {
		return err
	}
	for _, tu := range event.TextUnits(doc.Events) {
		if !tu.Translatable {
			continue
		}
		for _, seg := range tu.Source.Segments() {
			fmt.Fprintf(env.Stdout, "%s\t%s\t%s\n", tu.ID, seg.ID, strconv.Quote(genericcontent.Format(seg.Content)))
		}
	}
	return nil
}

// BatchCmd merges several documents concurrently.
type BatchCmd struct {
	Files   []string `arg:"" help:"Documents to translate" type:"existingfile"`
	Source  string   `help:"Source locale (default from config)"`
	Target  string   `short:"t" help:"Target locale (default from config or catalogue)"`
	Catalog string   `help:"PO catalogue to leverage" type:"existingfile"`
	MT      bool     `name:"mt" help:"Machine translate what the catalogue does not cover"`
	OutDir  string   `short:"o" help:"Output directory (default next to each input)" type:"path"`
	Jobs    int      `short:"j" help:"Documents processed at once (default from config)"`
}

func (c *BatchCmd) Run(env *Env) error {
	cat, err := loadCatalog(c.Catalog)
	if err != nil {
		return err
	}
	src, tgt, err := env.locales(c.Source, c.Target, cat)
	if err != nil {
		return err
	}
	if tgt.IsEmpty() {
		return fmt.Errorf("a target locale is required")
	}
	tr, err := env.translator(c.MT)
	if err != nil {
		return err
	}
	if c.OutDir != "" {
		if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", c.OutDir, err)
		}
	}
	jobs := c.Jobs
	if jobs <= 0 {
		jobs = env.Cfg.WorkerCount
	}

	start := time.Now()
	errs := make([]error, len(c.Files))
	var g errgroup.Group
	g.SetLimit(max(jobs, 1))
	for i, file := range c.Files {
		g.Go(func() error {
			_, errs[i] = env.merge(context.Background(), tr, file, pipeline.Request{
				Source:  src,
				Target:  tgt,
				Segment: true,
				MT:      c.MT,
				Catalog: cat,
			}, func(doc *pipeline.Document) string {
				dir := c.OutDir
				if dir == "" {
					dir = filepath.Dir(file)
				}
				return filepath.Join(dir, doc.OutputName(tgt))
			})
			return nil
		})
	}
	g.Wait()

	err = errors.Join(errs...)
	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	env.Log.Info("batch done",
		"files", len(c.Files),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// ConfigCmd prints the effective configuration with secrets masked.
type ConfigCmd struct{}

func (c *ConfigCmd) Run(env *Env) error {
	out, err := env.Cfg.YAML()
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}

func loadCatalog(path string) (*leverage.Catalog, error) {
	if path == "" {
		return nil, nil
	}
	return leverage.LoadCatalog(path)
}

// locales resolves flag values against the configuration. The target
// falls back to the catalogue's language.
func (env *Env) locales(source, target string, cat *leverage.Catalog) (src, tgt locale.ID, err error) {
	src, tgt = env.Cfg.Source(), env.Cfg.Target()
	if source != "" {
		if src, err = locale.Parse(source); err != nil {
			return "", "", err
		}
	}
	if target != "" {
		if tgt, err = locale.Parse(target); err != nil {
			return "", "", err
		}
	}
	if tgt.IsEmpty() && cat != nil {
		tgt = cat.Locale
	}
	return src, tgt, nil
}

// translator returns the machine translation client when enabled.
func (env *Env) translator(enabled bool) (mt.Translator, error) {
	if !enabled {
		return nil, nil
	}
	if env.Translator != nil {
		return env.Translator, nil
	}
	if env.Cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for --mt")
	}
	if env.Stats == nil {
		env.Stats = mt.NewLLMStats(time.Hour)
	}
	env.Translator = mt.NewClaudeClient(env.Cfg.AnthropicAPIKey, env.Cfg.AnthropicModel, env.Stats).
		WithBaseURL(env.Cfg.AnthropicBaseURL)
	return env.Translator, nil
}

func (env *Env) processor(tr mt.Translator) *pipeline.Processor {
	p := pipeline.NewProcessor(env.Cfg, tr, env.Stats, env.Log)
	p.XMLRules = env.XMLRules
	return p
}

func (env *Env) process(ctx context.Context, tr mt.Translator, file string, req pipeline.Request) (*pipeline.Document, pipeline.Report, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, pipeline.Report{}, fmt.Errorf("read %s: %w", file, err)
	}
	req.Name = file
	req.Data = data
	return env.processor(tr).Process(ctx, req, nil)
}

// merge processes one file and writes the translated document to the
// path chosen by dest.
func (env *Env) merge(ctx context.Context, tr mt.Translator, file string, req pipeline.Request, dest func(*pipeline.Document) string) (pipeline.Report, error) {
	doc, rep, err := env.process(ctx, tr, file, req)
	if err != nil {
		return rep, err
	}
	out, err := doc.Write(req.Target)
	if err != nil {
		return rep, err
	}
	path := dest(doc)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return rep, fmt.Errorf("write %s: %w", path, err)
	}
	env.Log.Info("merged",
		"filename", file,
		"output", path,
		"units", rep.Units,
		"leveraged", rep.Leveraged,
		"translated", rep.Translated,
		"failed", rep.Failed,
	)
	if rep.Failed > 0 {
		return rep, fmt.Errorf("%s: %d units left untranslated", file, rep.Failed)
	}
	return rep, nil
}

func (env *Env) output(path string, data []byte) error {
	if path == "" {
		_, err := env.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
