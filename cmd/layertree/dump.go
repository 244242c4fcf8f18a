package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/parser"
	"github.com/dgallion1/layertree/internal/walker"
)

// Output formats for dump.
const (
	formatPrimary = "primary"
	formatText    = "text"
	formatSimple  = "simple"
	formatJSON    = "json"
)

type dumpFlags struct {
	selectIDs   []string
	includeText bool
	hideHidden  bool
	simple      bool
	format      string
	batchSize   int
}

func newDumpCmd() *cobra.Command {
	defaults := walker.DefaultOptions()
	f := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Walk a file's layers and print the listing",
		Long: `Dump loads FILE (design export, Markdown, HTML, DOCX, PDF, CSV or text),
walks the selected layers and prints the result. Without --select every
top-level layer of every page is walked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args[0], f)
		},
	}

	cmd.Flags().StringSliceVarP(&f.selectIDs, "select", "s", nil, "Layer ids to walk (comma separated)")
	cmd.Flags().BoolVar(&f.includeText, "include-text", defaults.IncludeText, "Append text content to text layers")
	cmd.Flags().BoolVar(&f.hideHidden, "hide-hidden", defaults.HideHidden, "Skip invisible layers and their subtrees")
	cmd.Flags().BoolVar(&f.simple, "simple", defaults.SimpleNamesOnly, "Use short names for the primary listing")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatPrimary, "Output: primary, text, simple or json")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", walker.DefaultBatchSize, "Children visited between yields")
	return cmd
}

func runDump(cmd *cobra.Command, path string, f *dumpFlags) error {
	switch f.format {
	case formatPrimary, formatText, formatSimple, formatJSON:
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}

	doc, err := loadFile(path)
	if err != nil {
		return err
	}
	roots, err := selectRoots(doc, f.selectIDs)
	if err != nil {
		return err
	}

	w := walker.New(walker.Options{
		SimpleNamesOnly: f.simple,
		IncludeText:     f.includeText,
		HideHidden:      f.hideHidden,
	}, walker.WithBatchSize(f.batchSize))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := w.Walk(ctx, roots)
	if err != nil {
		return fmt.Errorf("walk: %w", err)
	}

	var out string
	switch f.format {
	case formatText:
		out = res.Text()
	case formatSimple:
		out = res.SimpleText()
	case formatJSON:
		if out, err = res.JSON(); err != nil {
			return fmt.Errorf("encode tree: %w", err)
		}
	default:
		out = res.Primary()
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func loadFile(path string) (*doctree.Document, error) {
	p, err := parser.ForFile(path, parser.Config{PDFFallback: true})
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	doc, err := p.Parse(file, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func selectRoots(doc *doctree.Document, ids []string) ([]doctree.Node, error) {
	if len(ids) == 0 {
		return doc.TopLevel(), nil
	}
	roots := make([]doctree.Node, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		l := doc.Find(id)
		if l == nil {
			return nil, fmt.Errorf("layer %q not found in %s", id, doc.Name)
		}
		roots = append(roots, l)
	}
	return roots, nil
}
