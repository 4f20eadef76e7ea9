package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvedit/internal/cel"
	"github.com/oakwood-commons/kvedit/internal/formatter"
	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/limiter"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
	"github.com/oakwood-commons/kvedit/pkg/loader"
)

const (
	outputText    = "text"
	outputJSON    = "json"
	outputYAML    = "yaml"
	outputMermaid = "mermaid"
)

// listOptions select and shape the nodes printed by printNodes.
type listOptions struct {
	filter    string
	format    string
	page      limiter.Config
	direction string
}

type nodeRecord struct {
	ID      string `json:"id" yaml:"id"`
	Path    string `json:"path" yaml:"path"`
	Summary string `json:"summary" yaml:"summary"`
}

func validateOutput(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid --output %q (use %s)", format, strings.Join(allowed, ", "))
}

// printNodes lists the nodes of doc, optionally filtered by a CEL predicate
// and paged.
func printNodes(cmd *cobra.Command, doc loader.Document, opts listOptions) error {
	if err := opts.page.Validate(); err != nil {
		return err
	}
	nodes, err := graph.Build(doc.JSON)
	if err != nil {
		return err
	}
	if opts.filter != "" {
		f, err := cel.NewNodeFilter(opts.filter)
		if err != nil {
			return err
		}
		if nodes, err = f.Filter(nodes); err != nil {
			return err
		}
	}
	nodes = limiter.Apply(opts.page, nodes)

	st := stateFrom(cmd.Context())
	summaryWidth := st.config.Editor.SummaryWidth
	if opts.format == outputMermaid {
		_, err := io.WriteString(cmd.OutOrStdout(), formatter.FormatAsMermaid(nodes, formatter.MermaidOptions{
			Direction:   opts.direction,
			MaxLabelLen: summaryWidth,
		}))
		return err
	}

	records := make([]nodeRecord, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, nodeRecord{ID: n.ID, Path: nodeview.FormatPath(n.Path), Summary: nodeview.Summary(n)})
	}
	out := cmd.OutOrStdout()
	switch opts.format {
	case outputJSON:
		return writeJSON(out, records)
	case outputYAML:
		return writeYAML(out, records)
	}

	width := 0
	for _, r := range records {
		width = max(width, runewidth.StringWidth(r.Path))
	}
	for _, r := range records {
		summary := r.Summary
		if summaryWidth > 0 {
			summary = runewidth.Truncate(summary, summaryWidth, "…")
		}
		fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(r.Path, width), summary)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// writeDocument prints doc converted back to format.
func writeDocument(w io.Writer, doc string, format loader.Format) error {
	data, err := loader.Encode(doc, format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, string(data))
	if err == nil && !strings.HasSuffix(string(data), "\n") {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
