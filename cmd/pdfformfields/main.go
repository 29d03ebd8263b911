// pdfformfields - list interactive form fields of a PDF as JSON
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pdfmark/pdfmark/pkg/formfill"
	"github.com/pdfmark/pdfmark/pkg/pdf"
)

var (
	compact   = flag.Bool("compact", false, "emit compact JSON instead of indented")
	printHelp = flag.Bool("h", false, "print usage information")
)

func usage() {
	fmt.Fprintf(os.Stderr, "pdfformfields version 0.1.0\n")
	fmt.Fprintf(os.Stderr, "Usage: pdfformfields [options] <PDF-file>\n")
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
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	file, err := pdf.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fields, err := file.FormFields()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(formfill.Describe(fields)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
