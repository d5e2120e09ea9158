package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	tlog "github.com/jward/trellis/internal/log"
)

func main() {
	c := newCLI(os.Stdout, os.Stderr)
	if err := c.root.Execute(); err != nil {
		// errorHandled is set by outputError so the error is not printed twice.
		if !c.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// cli holds the command tree and the state shared by its commands.
type cli struct {
	root   *cobra.Command
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	settings settings
	// configFile overrides the .trellis.yaml search.
	configFile   string
	errorHandled bool
}

func newCLI(out, errOut io.Writer) *cli {
	c := &cli{out: out, errOut: errOut, logger: tlog.Discard()}
	c.root = &cobra.Command{
		Use:           "trellis",
		Short:         "Symbol and type resolution over mixed-language module graphs",
		Long:          "Trellis indexes platform sources into a SQLite snapshot and answers member, override, visibility, mangling and annotation queries against it.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadSettings(cmd)
		},
		// No Run, prints help by default.
	}
	c.root.SetOut(out)
	c.root.SetErr(errOut)

	pf := c.root.PersistentFlags()
	pf.String("db", "", "snapshot database path (default: from the manifest, else trellis.db)")
	pf.String("format", "json", "output format: json|text")
	pf.String("log-level", "warn", "log level: debug|info|warn|error")
	pf.String("manifest", "", "project manifest (default: trellis.toml or trellis.yaml in the current directory)")
	pf.StringVar(&c.configFile, "config", "", "settings file (default: .trellis.yaml)")

	c.root.AddCommand(c.newBuildCmd())
	c.root.AddCommand(c.newQueryCmd())
	c.root.AddCommand(c.newEvalCmd())
	return c
}
