package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/trellis"
	"github.com/jward/trellis/internal/config"
	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/javasrc"
)

func (c *cli) newBuildCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "Index platform sources and write the snapshot",
		Long:  "Loads the project manifest, indexes each module's platform sources with tree-sitter, and writes the declaration graph to the SQLite snapshot. Reports which modules changed since the previous snapshot and which depend on them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.runBuild(cmd.Context(), args, force); err != nil {
				return c.outputError("build", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete the snapshot and rebuild from scratch")
	return cmd
}

func (c *cli) runBuild(ctx context.Context, args []string, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	path, err := c.manifestPath(args)
	if err != nil {
		return err
	}
	m, err := config.Load(path)
	if err != nil {
		return err
	}

	b := graph.NewBuilder()
	for _, mod := range m.Modules {
		b.AddModule(mod.Name, mod.Dependencies, mod.Friends)
	}

	// One loader per origin so names resolve across modules of the same kind.
	sources := javasrc.NewLoader(javasrc.WithLogger(c.logger))
	libraries := javasrc.NewLoader(javasrc.WithLogger(c.logger), javasrc.WithOrigin(graph.OriginPlatformLib))
	typeCount := 0
	for _, mod := range m.Modules {
		loader := sources
		if mod.Library {
			loader = libraries
		}
		n, err := loader.Index(ctx, b, mod.Name, m.SourceDirs(mod)...)
		if err != nil {
			return fmt.Errorf("indexing module %s: %w", mod.Name, err)
		}
		typeCount += n
	}
	g, err := b.Build()
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	dbPath := c.dbPath(m)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if force {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing snapshot for --force: %w", err)
		}
	}

	e := trellis.New(g, trellis.WithLogger(c.logger))
	report, err := e.Save(dbPath)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	fmt.Fprintf(c.errOut, "Indexed %d types in %d modules in %s\n",
		typeCount, report.Modules, time.Since(start).Round(time.Millisecond))

	return c.outputResult(CLIResult{
		Command: "build",
		Results: CLIBuildReport{
			Database:     dbPath,
			Modules:      report.Modules,
			Types:        typeCount,
			Declarations: report.Declarations,
			Changed:      nonNil(report.Changed),
			Removed:      report.Removed,
			Affected:     nonNil(report.Affected),
		},
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
