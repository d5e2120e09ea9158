package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	trt "github.com/jward/trellis/internal/runtime"
)

func (c *cli) newEvalCmd() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "eval <script.risor>",
		Short: "Run a Risor script against the snapshot",
		Long:  "Runs a Risor script with the query globals (declaration, class_by_name, as_member_of, find_overridden, mangled_name, sealed_subclasses, map_type, visibility, log) bound to a resolver for --module. The value of the last expression is printed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, r, err := c.openResolver(module)
			if err != nil {
				return c.outputError("eval", err)
			}
			defer e.Close()

			script, err := filepath.Abs(args[0])
			if err != nil {
				return c.outputError("eval", err)
			}
			rt := trt.NewRuntime(r, filepath.Dir(script), trt.WithRuntimeLogger(c.logger))
			res, err := rt.RunScript(cmd.Context(), filepath.Base(script), nil)
			if err != nil {
				return c.outputError("eval", err)
			}
			return c.outputResult(CLIResult{Command: "eval", Results: res})
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "querying module (default: the whole graph)")
	return cmd
}
