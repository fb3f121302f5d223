// Package cli implements the mashaaerctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/Harshitk-cp/mashaaer/internal/store"
)

const (
	formatJSON = "json"
	formatText = "text"

	defaultDBPath = "mashaaer.db"
)

type options struct {
	dbPath  string
	format  string
	verbose bool
}

// NewRootCmd builds the command tree. Each call returns independent flags.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "mashaaerctl",
		Short:         "Inspect and drive a mashaaer engine state file",
		Long:          "Offline tooling for the emotional trigger-and-memory engine. Operates on a SQLite state file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatJSON && opts.format != formatText {
				return fmt.Errorf("unknown format %q (want json or text)", opts.format)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "SQLite state path (default: $MASHAAER_DB or mashaaer.db)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "Output format: json or text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	root.AddCommand(
		newReplayCmd(opts),
		newRitualsCmd(opts),
		newRecallCmd(opts),
		newReflectCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// Execute runs the CLI and reports errors on stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (o *options) resolveDBPath() string {
	if o.dbPath != "" {
		return o.dbPath
	}
	if env := os.Getenv("MASHAAER_DB"); env != "" {
		return env
	}
	return defaultDBPath
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openEngine loads an engine backed by the SQLite file. The returned release
// drains pending writes and closes the database.
func (o *options) openEngine(ctx context.Context) (*service.Engine, func(), error) {
	logger := o.logger()
	st, err := store.NewSQLiteStateStore(o.resolveDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	saver := store.NewAsyncSaver(st, logger)

	engine := service.NewEngine(service.EngineConfig{
		LoadDefaultRituals: true,
		Store:              st,
		Saver:              saver,
	}, logger)
	if err := engine.Load(ctx); err != nil {
		saver.Close()
		_ = st.Close()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}

	release := func() {
		engine.Close()
		saver.Close()
		_ = st.Close()
		_ = logger.Sync()
	}
	return engine, release, nil
}

// emit writes v as indented JSON or hands it to text for the text format.
func (o *options) emit(w io.Writer, v any, text func(io.Writer)) error {
	if o.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
