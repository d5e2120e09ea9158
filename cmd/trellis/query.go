package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/trellis"
	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

func (c *cli) newQueryCmd() *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the snapshot",
		Long:  "Run resolution queries against a snapshot written by build. Declarations are addressed by qualified name, or by callable ID (\"p.C.f(kotlin.Int)\") to pick an overload.",
	}
	cmd.PersistentFlags().StringVar(&module, "module", "", "querying module (default: the whole graph)")

	// query wraps a handler with snapshot loading and error output.
	query := func(name string, run func(r *trellis.Resolver, args []string) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, r, err := c.openResolver(module)
			if err != nil {
				return c.outputError(name, err)
			}
			defer e.Close()
			res, err := run(r, args)
			if err != nil {
				return c.outputError(name, err)
			}
			return c.outputResult(CLIResult{Command: name, Results: res})
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "decl <path>",
		Short: "Show a declaration",
		Args:  cobra.ExactArgs(1),
		RunE: query("decl", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := findDecl(r, args[0])
			if err != nil {
				return nil, err
			}
			return declToCLI(d), nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "member <path> <receiver-type>",
		Short: "Type of a member seen through a receiver type",
		Args:  cobra.ExactArgs(2),
		RunE: query("member", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := findDecl(r, args[0])
			if err != nil {
				return nil, err
			}
			recv, err := types.Parse(args[1], nil)
			if err != nil {
				return nil, err
			}
			t, err := r.AsMemberOf(d, recv)
			if err != nil {
				return nil, err
			}
			return CLIType{Decl: d.ID, Input: types.Format(recv), Type: types.Format(t)}, nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "overridden <path>",
		Short: "Declarations a member overrides, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: query("overridden", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := findDecl(r, args[0])
			if err != nil {
				return nil, err
			}
			out, err := r.FindOverridden(d)
			if err != nil {
				return nil, err
			}
			return declsToCLI(out), nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mangle <path>",
		Short: "Binary name and descriptor of a declaration",
		Args:  cobra.ExactArgs(1),
		RunE: query("mangle", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := findDecl(r, args[0])
			if err != nil {
				return nil, err
			}
			out := CLIMangled{Decl: d.ID, Name: r.MangledName(d)}
			if d.Kind.IsCallable() {
				out.Descriptor = r.JvmDescriptor(d)
			}
			return out, nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sealed <class>",
		Short: "Direct subclasses of a sealed class",
		Args:  cobra.ExactArgs(1),
		RunE: query("sealed", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := r.ClassByName(args[0])
			if err != nil {
				return nil, err
			}
			return declsToCLI(r.SealedSubclasses(d)), nil
		}),
	})

	var from string
	visibility := &cobra.Command{
		Use:   "visibility <path>",
		Short: "Effective visibility of a declaration",
		Args:  cobra.ExactArgs(1),
		RunE: query("visibility", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := findDecl(r, args[0])
			if err != nil {
				return nil, err
			}
			var fm *graph.Module
			if from != "" {
				if fm = r.Graph().Module(from); fm == nil {
					return nil, fmt.Errorf("unknown module %q", from)
				}
			}
			out := CLIVisibility{Decl: d.ID, From: from, Visibility: string(r.EffectiveVisibility(d, fm))}
			if out.From == "" && r.Module() != nil {
				out.From = r.Module().Name
			}
			return out, nil
		}),
	}
	visibility.Flags().StringVar(&from, "from", "", "observing module (default: --module)")
	cmd.AddCommand(visibility)

	var annotationType string
	annotations := &cobra.Command{
		Use:   "annotations <path>",
		Short: "Evaluated annotations of a declaration",
		Args:  cobra.ExactArgs(1),
		RunE: query("annotations", func(r *trellis.Resolver, args []string) (any, error) {
			d, err := findDecl(r, args[0])
			if err != nil {
				return nil, err
			}
			// Failed usages are reported in place.
			var ras []*trellis.ResolvedAnnotation
			if annotationType != "" {
				ras, _ = r.AnnotationsByType(d, annotationType)
			} else {
				for _, u := range d.Annotations() {
					ra, err := r.Evaluate(u)
					if err != nil {
						ra = &trellis.ResolvedAnnotation{Class: u.Class, Err: err}
					}
					ras = append(ras, ra)
				}
			}
			out := make([]CLIAnnotation, 0, len(ras))
			for _, ra := range ras {
				out = append(out, annotationToCLI(ra))
			}
			return out, nil
		}),
	}
	annotations.Flags().StringVar(&annotationType, "type", "", "only annotations of this class")
	cmd.AddCommand(annotations)

	cmd.AddCommand(&cobra.Command{
		Use:   "expand <type>",
		Short: "Expand every type alias in a type",
		Args:  cobra.ExactArgs(1),
		RunE: query("expand", func(r *trellis.Resolver, args []string) (any, error) {
			t, err := types.Parse(args[0], nil)
			if err != nil {
				return nil, err
			}
			out, err := r.ExpandType(t)
			if err != nil {
				return nil, err
			}
			return CLIType{Input: types.Format(t), Type: types.Format(out)}, nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "map-type <platform-type>",
		Short: "Map a platform type into the primary type system",
		Args:  cobra.ExactArgs(1),
		RunE: query("map-type", func(r *trellis.Resolver, args []string) (any, error) {
			t, err := types.Parse(args[0], nil)
			if err != nil {
				return nil, err
			}
			return CLIType{Input: types.Format(t), Type: types.Format(r.MapType(t, nil))}, nil
		}),
	})

	return cmd
}

// openResolver opens the snapshot and returns a resolver for module. The
// caller closes the engine.
func (c *cli) openResolver(module string) (*trellis.Engine, *trellis.Resolver, error) {
	dbPath := c.dbPath(nil)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("snapshot not found: %s (run 'trellis build' first)", dbPath)
	}
	e, err := trellis.Open(dbPath, trellis.WithLogger(c.logger))
	if err != nil {
		return nil, nil, err
	}
	r, err := e.Query(module)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, r, nil
}

func findDecl(r *trellis.Resolver, path string) (*graph.Declaration, error) {
	if d := r.FindDeclaration(path); d != nil {
		return d, nil
	}
	name := ""
	if m := r.Module(); m != nil {
		name = m.Name
	}
	return nil, &trellis.UnresolvedReferenceError{Name: path, Module: name}
}
