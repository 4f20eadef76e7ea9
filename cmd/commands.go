package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/settings"
)

func newNodesCmd() *cobra.Command {
	var opts listOptions
	c := &cobra.Command{
		Use:   "nodes [file]",
		Short: "List the nodes of a document",
		Long: `List every node with its JSON path and a one-line summary.

--filter takes a CEL predicate over 'node' with the fields id, path, depth,
keys, values, scalar and content. -o mermaid prints the nodes as a Mermaid
flowchart linking each node to its nearest ancestor node.`,
		Example: "  kvedit nodes basket.json --filter 'node.depth == 2 && \"color\" in node.keys'",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.format, outputText, outputJSON, outputYAML, outputMermaid); err != nil {
				return err
			}
			doc, _, err := loadInput(cmd, args)
			if err != nil {
				return err
			}
			return printNodes(cmd, doc, opts)
		},
	}
	c.Flags().StringVar(&opts.filter, "filter", "", "CEL predicate selecting nodes")
	c.Flags().StringVarP(&opts.format, "output", "o", outputText, "output format: text|json|yaml|mermaid")
	c.Flags().IntVar(&opts.page.Limit, "limit", 0, "show at most N nodes")
	c.Flags().IntVar(&opts.page.Offset, "offset", 0, "skip the first N nodes")
	c.Flags().IntVar(&opts.page.Tail, "tail", 0, "show the last N nodes (ignores --offset)")
	c.Flags().StringVar(&opts.direction, "mermaid-direction", "TD", "Mermaid diagram direction: TD, LR, BT, RL")
	return c
}

func newShowCmd() *cobra.Command {
	var path, output string
	c := &cobra.Command{
		Use:   "show [file]",
		Short: "Show a node's content and JSON path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output, outputText, outputJSON, outputYAML); err != nil {
				return err
			}
			session, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			defer session.Close()

			n, err := findNode(session, path)
			if err != nil {
				return err
			}
			view := nodeview.NewView(n)
			out := cmd.OutOrStdout()
			switch output {
			case outputJSON:
				return writeJSON(out, view)
			case outputYAML:
				return writeYAML(out, view)
			}
			fmt.Fprintf(out, "Content\n%s\n\nJSON Path\n%s\n", view.Content, view.Path)
			return nil
		},
	}
	c.Flags().StringVarP(&path, "path", "p", "$", `node path: $["a"][0], a.0 or a[0]`)
	c.Flags().StringVarP(&output, "output", "o", outputText, "output format: text|json|yaml")
	return c
}

// findNode resolves a user-supplied path to a node of session.
func findNode(session *store.Session, raw string) (graph.Node, error) {
	p, err := jsonpath.Parse(raw)
	if err != nil {
		return graph.Node{}, fmt.Errorf("invalid --path: %w", err)
	}
	if n, ok := session.Graph.FindByPath(p); ok {
		return n, nil
	}
	if n, ok := session.Graph.FindByPath(p.NumericKeysAsIndexes()); ok {
		return n, nil
	}
	return graph.Node{}, fmt.Errorf("%w: %s", store.ErrNodeNotFound, jsonpath.Format(p))
}

func newConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect " + settings.CliBinaryName + " configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	get := &cobra.Command{
		Use:   "get",
		Short: "Print the merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeYAML(cmd.OutOrStdout(), stateFrom(cmd.Context()).config)
		},
	}
	themes := &cobra.Command{
		Use:   "themes",
		Short: "List available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := stateFrom(cmd.Context()).config
			for _, name := range cfg.ThemeNames() {
				marker := " "
				if name == cfg.UI.Theme.Default {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
	c.AddCommand(get, themes)
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print " + settings.CliBinaryName + " version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
			return nil
		},
	}
}

// cliVersionString builds the version line from build metadata.
func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

var errNoFile = errors.New("--write needs a file argument; the document was read from stdin")
