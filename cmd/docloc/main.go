// Command docloc extracts, merges and checks localizable documents from
// the command line.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/docloc/internal/config"
	"github.com/dgallion1/docloc/internal/mt"
)

// CLI defines the command-line interface for docloc.
var CLI struct {
	ConfigFile string   `name:"config" short:"c" help:"YAML configuration file" type:"path" env:"DOCLOC_CONFIG"`
	Verbose    bool     `short:"v" help:"Log at debug level"`
	XMLRule    []string `name:"xml-rule" help:"XPath selecting translatable XML elements (repeatable)"`

	Extract    ExtractCmd   `cmd:"" help:"Extract translatable text to a PO catalogue"`
	Merge      MergeCmd     `cmd:"" help:"Write a translated document from a PO catalogue and machine translation"`
	RoundTrip  RoundTripCmd `cmd:"" name:"roundtrip" help:"Parse and rewrite a document, failing when the bytes differ"`
	Segment    SegmentCmd   `cmd:"" help:"Print the sentence segments of a document"`
	Batch      BatchCmd     `cmd:"" help:"Merge many documents in parallel"`
	ShowConfig ConfigCmd    `cmd:"" name:"config" help:"Print the effective configuration"`
}

// Env is what every command runs against.
type Env struct {
	Cfg      config.Config
	Log      *slog.Logger
	XMLRules []string
	Stdout   io.Writer

	// Translator overrides the client built from the configuration.
	Translator mt.Translator
	Stats      *mt.LLMStats
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("docloc"),
		kong.Description("Localization toolkit: document filters, segmentation, leverage and machine translation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.LoadFile(CLI.ConfigFile)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&Env{
		Cfg:      cfg,
		Log:      log,
		XMLRules: CLI.XMLRule,
		Stdout:   os.Stdout,
	})
	ctx.FatalIfErrorf(err)
}
