// Command duplexnum stamps duplex-aware page numbers onto a PDF: odd
// pages top-left, even pages top-right, clear of the punch-hole edge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mkoehler/duplexnum/fonts"
	"github.com/mkoehler/duplexnum/observability"
	"github.com/mkoehler/duplexnum/stamp"
)

type options struct {
	inputPath  string
	outputPath string
	fontPath   string
	verbose    bool
	cfg        stamp.Config
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "duplexnum: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "duplexnum: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	defaults := stamp.DefaultConfig()
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: duplexnum [flags] <input.pdf> [output.pdf]\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Without an output path the result is written next to the input as <name>%s.pdf.\n", stamp.OutputSuffix)
		flag.PrintDefaults()
	}
	fontSize := flag.Float64("font-size", defaults.FontSize, "Label font size in points")
	marginX := flag.Float64("margin-x", defaults.MarginX, "Horizontal distance from the page edge in points")
	marginY := flag.Float64("margin-y", defaults.MarginY, "Vertical distance from the top edge in points")
	fontPath := flag.String("font", "", "TrueType font file for the labels (default: built-in Helvetica)")
	verbose := flag.Bool("v", false, "Log per-page placement details")
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		return options{}, fmt.Errorf("expected <input.pdf> [output.pdf]")
	}
	opts.inputPath = flag.Arg(0)
	if flag.NArg() == 2 {
		opts.outputPath = flag.Arg(1)
	}
	opts.fontPath = *fontPath
	opts.verbose = *verbose
	opts.cfg = stamp.Config{FontSize: *fontSize, MarginX: *marginX, MarginY: *marginY}
	if opts.cfg.FontSize <= 0 {
		return options{}, fmt.Errorf("font size must be positive")
	}
	return opts, nil
}

func run(opts options) error {
	level := observability.LevelInfo
	if opts.verbose {
		level = observability.LevelDebug
	}
	log := observability.NewTextLogger(os.Stderr, level)

	stamperOpts := []stamp.Option{stamp.WithLogger(log)}
	if opts.fontPath != "" {
		data, err := os.ReadFile(opts.fontPath)
		if err != nil {
			return fmt.Errorf("reading font %s: %w", opts.fontPath, err)
		}
		ttf, err := fonts.LoadTrueType(data)
		if err != nil {
			return fmt.Errorf("loading font %s: %w", opts.fontPath, err)
		}
		stamperOpts = append(stamperOpts, stamp.WithTrueType(ttf))
	}

	st := stamp.New(opts.cfg, stamperOpts...)
	return st.Run(context.Background(), opts.inputPath, opts.outputPath)
}
