package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvedit/internal/api"
	"github.com/oakwood-commons/kvedit/internal/document"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/logger"
)

// resultFlags choose what an edit command prints.
type resultFlags struct {
	write      bool
	diff       bool
	mergePatch bool
}

func (f *resultFlags) register(c *cobra.Command) {
	c.Flags().BoolVarP(&f.write, "write", "w", false, "save the result back to the input file")
	c.Flags().BoolVar(&f.diff, "diff", false, "print a line diff of the document instead of the result")
	c.Flags().BoolVar(&f.mergePatch, "merge-patch", false, "print the RFC 7386 merge patch instead of the result")
	c.MarkFlagsMutuallyExclusive("diff", "merge-patch")
}

func newEditCmd() *cobra.Command {
	var path string
	var edit document.Edit
	var rf resultFlags
	c := &cobra.Command{
		Use:   "edit [file]",
		Short: "Set a node's name and color",
		Long: `Set the name and color of the node at --path.

An object node gets both fields merged in, keeping its other members and
their order. Any other node is replaced by a {name, color} object with the
empty fields left out. Editing the root replaces the whole document with the
name.`,
		Example: "  kvedit edit basket.json --path 'fruits[0]' --name Apple --color green -w",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			defer session.Close()
			if rf.write && session.Files.Path() == "" {
				return errNoFile
			}

			n, err := findNode(session, path)
			if err != nil {
				return err
			}
			before := session.JSON.JSON()
			res, err := session.SaveNodeEdit(cmd.Context(), n.ID, edit)
			if err != nil {
				return err
			}
			return reportResult(cmd, session, rf, before, res.Document, res.Mode.String())
		},
	}
	c.Flags().StringVarP(&path, "path", "p", "", `node path: $["a"][0], a.0 or a[0]`)
	c.Flags().StringVar(&edit.Name, "name", "", "new name")
	c.Flags().StringVar(&edit.Color, "color", "", "new color")
	_ = c.MarkFlagRequired("path")
	rf.register(c)
	return c
}

func newSetCmd() *cobra.Command {
	var path, value string
	var rf resultFlags
	c := &cobra.Command{
		Use:   "set [file]",
		Short: "Set a node's value the way the inline editor does",
		Long: `Set the value of the node at --path.

A string node keeps the value as a string. Any other scalar node takes the
value as JSON when it parses, and as a string otherwise. An object node gets
the value as its name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			defer session.Close()
			if rf.write && session.Files.Path() == "" {
				return errNoFile
			}

			n, err := findNode(session, path)
			if err != nil {
				return err
			}
			before := session.JSON.JSON()
			next, err := session.SaveInlineValue(cmd.Context(), n.ID, value)
			if err != nil {
				return err
			}
			return reportResult(cmd, session, rf, before, next, "")
		},
	}
	c.Flags().StringVarP(&path, "path", "p", "", `node path: $["a"][0], a.0 or a[0]`)
	c.Flags().StringVar(&value, "value", "", "new value")
	_ = c.MarkFlagRequired("path")
	_ = c.MarkFlagRequired("value")
	rf.register(c)
	return c
}

func reportResult(cmd *cobra.Command, session *store.Session, rf resultFlags, before, after, mode string) error {
	out := cmd.OutOrStdout()
	if rf.write {
		if err := session.Files.Save(cmd.Context()); err != nil {
			return err
		}
		if mode != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", session.Files.Path(), mode)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", session.Files.Path())
		}
	}
	switch {
	case rf.diff:
		fmt.Fprint(out, document.LineDiff(before, after))
		return nil
	case rf.mergePatch:
		patch, err := document.MergePatch(before, after)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, document.Indent(patch))
		return nil
	case rf.write:
		return nil
	}
	return writeDocument(out, after, session.Files.Format())
}

func newServeCmd() *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the document's nodes over HTTP",
		Long: `Serve the document over a JSON HTTP API until interrupted:

  GET  /document              current document
  POST /document/save         write the document back to the file
  GET  /nodes?filter=<cel>    node summaries
  GET  /node?path=<path>      a node's content and JSON path
  POST /node/edit?path=<path> {"name": "...", "color": "..."}
  PUT  /node/value?path=<path> {"value": "..."}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			defer session.Close()

			cfg := stateFrom(cmd.Context()).config
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.Server.Addr == "" {
				return errors.New("no listen address; set --addr or server.addr")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.FromContext(ctx).Info("starting server", logger.FileKey, session.Files.Path())
			return api.NewServer(ctx, session, cfg).ListenAndServe(ctx)
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
	return c
}
