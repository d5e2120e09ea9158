package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatDeclsText formats declarations as aligned columns.
func formatDeclsText(w io.Writer, decls []CLIDecl) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tVISIBILITY\tMODULE\tTYPE")
	for _, d := range decls {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Kind, d.Visibility, d.Module, d.Type)
	}
	tw.Flush()
}

// formatDeclText formats one declaration with its signature.
func formatDeclText(w io.Writer, d CLIDecl) {
	fmt.Fprintf(w, "%s %s\n", d.Kind, d.QualifiedName)
	fmt.Fprintf(w, "  id:         %s\n", d.ID)
	fmt.Fprintf(w, "  module:     %s\n", d.Module)
	fmt.Fprintf(w, "  origin:     %s\n", d.Origin)
	fmt.Fprintf(w, "  visibility: %s\n", d.Visibility)
	fmt.Fprintf(w, "  modality:   %s\n", d.Modality)
	if len(d.Modifiers) > 0 {
		fmt.Fprintf(w, "  modifiers:  %s\n", strings.Join(d.Modifiers, " "))
	}
	if len(d.Params) > 0 {
		fmt.Fprintf(w, "  params:     (%s)\n", strings.Join(d.Params, ", "))
	}
	if d.Type != "" {
		fmt.Fprintf(w, "  type:       %s\n", d.Type)
	}
	if len(d.Supertypes) > 0 {
		fmt.Fprintf(w, "  supertypes: %s\n", strings.Join(d.Supertypes, ", "))
	}
}

// formatAnnotationsText formats evaluated annotations one per line.
func formatAnnotationsText(w io.Writer, anns []CLIAnnotation) {
	for _, a := range anns {
		parts := make([]string, len(a.Args))
		for i, arg := range a.Args {
			parts[i] = arg.Name + " = " + arg.Value
			if arg.Default {
				parts[i] += " (default)"
			}
		}
		suffix := ""
		if a.Unresolved {
			suffix = "  [unresolved]"
		}
		if a.Error != "" {
			suffix += "  [error: " + a.Error + "]"
		}
		fmt.Fprintf(w, "@%s(%s)%s\n", a.Class, strings.Join(parts, ", "), suffix)
	}
}

// formatBuildText formats a build report.
func formatBuildText(w io.Writer, r CLIBuildReport) {
	fmt.Fprintf(w, "Database: %s\n", r.Database)
	fmt.Fprintf(w, "Modules: %d, types: %d, declarations: %d\n", r.Modules, r.Types, r.Declarations)
	if len(r.Changed) > 0 {
		fmt.Fprintf(w, "Changed: %s\n", strings.Join(r.Changed, ", "))
	}
	if len(r.Removed) > 0 {
		fmt.Fprintf(w, "Removed: %s\n", strings.Join(r.Removed, ", "))
	}
	if len(r.Affected) > 0 {
		fmt.Fprintf(w, "Affected: %s\n", strings.Join(r.Affected, ", "))
	}
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDecl:
		formatDeclsText(w, v)
	case CLIDecl:
		formatDeclText(w, v)
	case CLIType:
		fmt.Fprintln(w, v.Type)
	case CLIMangled:
		fmt.Fprintln(w, v.Name)
		if v.Descriptor != "" {
			fmt.Fprintln(w, v.Descriptor)
		}
	case CLIVisibility:
		fmt.Fprintln(w, v.Visibility)
	case []CLIAnnotation:
		formatAnnotationsText(w, v)
	case CLIBuildReport:
		formatBuildText(w, v)
	case nil:
		// No output for nil results.
	default:
		// Script results have no fixed shape.
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("unsupported result type for text format: %T", v)
		}
		fmt.Fprintln(w, string(data))
	}
	return nil
}

// outputResult writes a CLIResult in the selected format.
func (c *cli) outputResult(result CLIResult) error {
	if c.settings.Format == "text" {
		return outputResultText(c.out, result)
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as
// a CLIResult envelope. In text mode it goes to stderr.
func (c *cli) outputError(command string, err error) error {
	c.errorHandled = true
	if c.settings.Format == "text" {
		fmt.Fprintf(c.errOut, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
