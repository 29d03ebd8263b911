// pdfformfill - fill interactive form fields from a JSON value map
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pdfmark/pdfmark/pkg/pdf"
)

var (
	flatten   = flag.Bool("flatten", false, "make filled fields read only")
	output    = flag.String("o", "", "output file (default <PDF-file>.filled.pdf)")
	printHelp = flag.Bool("h", false, "print usage information")
)

func usage() {
	fmt.Fprintf(os.Stderr, "pdfformfill version 0.1.0\n")
	fmt.Fprintf(os.Stderr, "Usage: pdfformfill [options] <PDF-file> <values.json>\n")
	fmt.Fprintf(os.Stderr, "\nThe values file maps field names to string values, for example\n")
	fmt.Fprintf(os.Stderr, "  {\"name\": \"Jane Doe\", \"agree\": \"Yes\"}\n")
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

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	valueData, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var values map[string]string
	if err := json.Unmarshal(valueData, &values); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid values file: %v\n", err)
		os.Exit(1)
	}

	file, err := pdf.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	filled, failed, err := file.FillForm(values, *flatten)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, name := range failed {
		fmt.Fprintf(os.Stderr, "Warning: no fillable field named %q\n", name)
	}

	out := *output
	if out == "" {
		out = args[0] + ".filled.pdf"
	}
	if err := os.WriteFile(out, filled, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d fields filled)\n", out, len(values)-len(failed))
}
