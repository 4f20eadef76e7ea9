package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvedit/internal/config"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/internal/ui"
	"github.com/oakwood-commons/kvedit/pkg/loader"
	"github.com/oakwood-commons/kvedit/pkg/logger"
	"github.com/oakwood-commons/kvedit/pkg/settings"
)

// errShowHelp is returned by loadInput when there is no file argument and
// nothing on stdin.
var errShowHelp = errors.New("no input provided")

type runState struct {
	settings *settings.Run
	config   config.Config
	logSink  io.Closer
}

type rootFlags struct {
	configFile  string
	logLevel    string
	debug       bool
	noColor     bool
	logFile     string
	interactive bool
	width       int
	height      int
}

// state is filled in by PersistentPreRunE and read by every subcommand.
type stateKey struct{}

func stateFrom(ctx context.Context) *runState {
	if st, ok := ctx.Value(stateKey{}).(*runState); ok {
		return st
	}
	return &runState{settings: settings.NewCliParams()}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   settings.CliBinaryName + " [file]",
		Short: settings.CliBinaryName + " - edit the nodes of a JSON graph in place",
		Long: settings.CliBinaryName + ` loads a JSON, YAML or TOML document, splits it into nodes (one per
object and per scalar array element) and edits each node's name and color
without disturbing the rest of the document.

Without -i the node list is printed. With -i the interactive browser opens.`,
		Example: "\n  kvedit basket.json -i\n  kvedit nodes basket.yaml --filter '\"color\" in node.keys'\n" +
			"  kvedit edit basket.json --path 'fruits[1]' --name Cherry --color red --diff\n" +
			"  cat basket.json | kvedit show --path '$[\"fruits\"][0]'\n",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupRun(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if st := stateFrom(cmd.Context()); st.logSink != nil {
				logger.Sync()
				_ = st.logSink.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, path, err := loadInput(cmd, args)
			if errors.Is(err, errShowHelp) {
				return cmd.Help()
			}
			if err != nil {
				return err
			}
			if flags.interactive {
				return runInteractive(cmd, doc, path, flags.width, flags.height)
			}
			return printNodes(cmd, doc, listOptions{format: outputText})
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config-file", "", "path to a YAML config file (themes, editor keys, server)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.BoolVar(&flags.debug, "debug", false, "shorthand for --log-level=debug")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable color output")
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "open the interactive node browser")
	rootCmd.Flags().IntVar(&flags.width, "width", 0, "TUI width in columns (0 = detect)")
	rootCmd.Flags().IntVar(&flags.height, "height", 0, "TUI height in rows (0 = detect)")

	rootCmd.AddCommand(
		newNodesCmd(),
		newShowCmd(),
		newEditCmd(),
		newSetCmd(),
		newServeCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background(), os.Args[1:])
}

// ExecuteContext runs the root command with args under ctx.
func ExecuteContext(ctx context.Context, args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func setupRun(cmd *cobra.Command, flags *rootFlags) error {
	level, err := parseLogLevel(flags.logLevel)
	if err != nil {
		return err
	}
	if flags.debug {
		level = -1
	}

	run := settings.NewCliParams()
	run.MinLogLevel = level
	run.ConfigFile = resolveConfigPath(flags.configFile)
	run.LogFile = flags.logFile
	run.NoColor = flags.noColor || os.Getenv("NO_COLOR") != ""
	run.Interactive = flags.interactive

	st := &runState{settings: run}
	opts := logger.Options{Level: level}
	switch {
	case flags.logFile != "":
		f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		opts.Output = f
		st.logSink = f
	case flags.interactive:
		// Log lines would paint over the alt screen.
		opts.Output = io.Discard
	}
	lgr := logger.Setup(opts)
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	cfg, err := loadMergedConfig(run.ConfigFile)
	if err != nil {
		return err
	}
	st.config = cfg
	ui.SetTheme(ui.ThemeFromConfig(cfg.ActiveTheme()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, lgr)
	ctx = settings.IntoContext(ctx, run)
	ctx = context.WithValue(ctx, stateKey{}, st)
	cmd.SetContext(ctx)
	return nil
}

func parseLogLevel(s string) (int8, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return -1, nil
	case "", "info":
		return 0, nil
	case "warn", "warning":
		return 1, nil
	case "error":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid --log-level %q (use debug, info, warn or error)", s)
	}
}

// loadInput reads the file named by args, or stdin when no file is given and
// stdin is not a terminal.
func loadInput(cmd *cobra.Command, args []string) (loader.Document, string, error) {
	if len(args) == 1 && args[0] != "-" {
		doc, err := loader.LoadFile(args[0])
		if err != nil {
			return loader.Document{}, "", err
		}
		logger.FromContext(cmd.Context()).V(1).Info("loaded input", logger.FileKey, args[0], "format", string(doc.Format))
		return doc, args[0], nil
	}
	in := cmd.InOrStdin()
	if in == os.Stdin && !stdinIsPiped() {
		return loader.Document{}, "", errShowHelp
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return loader.Document{}, "", fmt.Errorf("read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return loader.Document{}, "", errShowHelp
	}
	doc, err := loader.Load(data)
	if err != nil {
		return loader.Document{}, "", fmt.Errorf("parse stdin: %w", err)
	}
	return doc, "", nil
}

// openSession loads the input and builds a session over it.
func openSession(cmd *cobra.Command, args []string) (*store.Session, error) {
	doc, path, err := loadInput(cmd, args)
	if err != nil {
		return nil, err
	}
	return newSession(cmd, doc, path)
}

func newSession(cmd *cobra.Command, doc loader.Document, path string) (*store.Session, error) {
	session, err := store.NewSession(doc, path)
	if err != nil {
		return nil, err
	}
	if keys := stateFrom(cmd.Context()).config.Editor.NameKeys; len(keys) > 0 {
		session.NameKeys = keys
	}
	return session, nil
}

func runInteractive(cmd *cobra.Command, doc loader.Document, path string, width, height int) error {
	st := stateFrom(cmd.Context())
	session, err := newSession(cmd, doc, path)
	if err != nil {
		return err
	}
	defer session.Close()

	progOpts, cleanup := getProgramOptions(cmd.Context())
	defer cleanup()

	_, err = ui.Run(cmd.Context(), session, uiOptions(st), width, height, progOpts...)
	if err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	if session.Files.Dirty() {
		fmt.Fprintln(cmd.ErrOrStderr(), "unsaved changes discarded")
	}
	return nil
}

func uiOptions(st *runState) ui.Options {
	return ui.Options{
		AppName:      st.config.App.Name,
		NameKeys:     st.config.Editor.NameKeys,
		ColorKeys:    st.config.Editor.ColorKeys,
		SummaryWidth: st.config.Editor.SummaryWidth,
		NoColor:      st.settings.NoColor,
	}
}
