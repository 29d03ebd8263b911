// pdfannotate - apply an annotation set to a PDF document
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pdfmark/pdfmark/pkg/annotation"
	"github.com/pdfmark/pdfmark/pkg/config"
	"github.com/pdfmark/pdfmark/pkg/export"
)

var (
	configPath = flag.String("config", "", "path to config file")
	cjkFont    = flag.String("cjk-font", "", "TrueType font for non-ASCII text (overrides config)")
	output     = flag.String("o", "", "output file (default <PDF-file>.annotated.pdf)")
	noValidate = flag.Bool("no-validate", false, "skip schema validation of the annotation set")
	printHelp  = flag.Bool("h", false, "print usage information")
)

func usage() {
	fmt.Fprintf(os.Stderr, "pdfannotate version 0.1.0\n")
	fmt.Fprintf(os.Stderr, "Usage: pdfannotate [options] <PDF-file> <annotations.json>\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *printHelp {
		usage()
		os.Exit(0)
	}
	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Logging)

	document, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setData, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !*noValidate {
		if err := annotation.ValidateSet(setData); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid annotation set: %v\n", err)
			os.Exit(1)
		}
	}
	set, err := annotation.ParseSet(setData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fontPath := cfg.Export.CJKFontPath
	if *cjkFont != "" {
		fontPath = *cjkFont
	}
	var font []byte
	if fontPath != "" {
		font, err = os.ReadFile(fontPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	pipeline := export.New(export.Options{CJKFont: font, Logger: log})
	result, err := pipeline.Export(context.Background(), document, set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := *output
	if out == "" {
		out = args[0] + ".annotated.pdf"
	}
	if err := os.WriteFile(out, result, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Info("annotated document written", "output", out, "annotations", len(set))
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
