package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-visa-intake/internal/formfill"
)

// InspectionResult is everything form-inspect reports about one template
type InspectionResult struct {
	FilePath   string                    `json:"file_path"`
	Info       formfill.Info             `json:"info"`
	Validation formfill.ValidationReport `json:"validation"`
	Duration   string                    `json:"inspection_time,omitempty"`
}

var newEngine = func(logger *slog.Logger) formfill.Engine {
	return formfill.NewPDFCPUEngine(logger)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("form-inspect", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	format := flags.StringP("format", "f", "text", "Output format: text, json")
	verbose := flags.BoolP("verbose", "v", false, "Log engine diagnostics to stderr")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "form-inspect - list the fillable fields of a PDF form template")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "USAGE:")
		fmt.Fprintln(stderr, "  form-inspect [OPTIONS] <pdf_file>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "OPTIONS:")
		flags.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "EXAMPLES:")
		fmt.Fprintln(stderr, "  form-inspect templates/ds160.pdf")
		fmt.Fprintln(stderr, "  form-inspect --format json templates/schengen.pdf")
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: PDF file path required")
		flags.Usage()
		return 2
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	path := flags.Arg(0)
	data, err := os.ReadFile(path) // #nosec G304 -- path given on the command line
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	result, err := inspect(newEngine(logger), path, data)
	if err != nil {
		fmt.Fprintf(stderr, "Error inspecting form: %v\n", err)
		return 1
	}

	if *format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "Error writing output: %v\n", err)
			return 1
		}
	} else {
		printText(stdout, result)
	}

	if !result.Validation.IsValid {
		return 1
	}
	return 0
}

func inspect(engine formfill.Engine, path string, data []byte) (*InspectionResult, error) {
	start := time.Now()
	info, err := engine.Inspect(data)
	if err != nil {
		return nil, err
	}
	return &InspectionResult{
		FilePath:   path,
		Info:       info,
		Validation: formfill.Validate(engine, data),
		Duration:   time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

func printText(w io.Writer, r *InspectionResult) {
	fmt.Fprintf(w, "File:      %s\n", r.FilePath)
	fmt.Fprintf(w, "Pages:     %d\n", r.Info.PageCount)
	fmt.Fprintf(w, "Encrypted: %t\n", r.Info.Encrypted)
	fmt.Fprintf(w, "Fillable:  %d of %d fields\n", r.Info.FillableCount(), len(r.Info.Fields))
	fmt.Fprintln(w)

	if len(r.Info.Fields) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tKIND\tPAGES\tOPTIONS")
		for _, f := range r.Info.Fields {
			name := f.Name
			if f.Locked {
				name += " (read-only)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, name, f.Kind, joinInts(f.Pages), strings.Join(f.Options, "|"))
		}
		_ = tw.Flush()
		fmt.Fprintln(w)
	}

	if r.Validation.IsValid {
		fmt.Fprintln(w, "Pre-flight: OK")
	} else {
		fmt.Fprintln(w, "Pre-flight: FAILED")
	}
	for _, e := range r.Validation.Errors {
		fmt.Fprintf(w, "  error:   %s\n", e)
	}
	for _, warn := range r.Validation.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
