package main

import (
	"fmt"
	"strings"

	"github.com/jward/trellis"
	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIDecl is a JSON-friendly declaration.
type CLIDecl struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualified_name"`
	Kind          string   `json:"kind"`
	Module        string   `json:"module,omitempty"`
	Origin        string   `json:"origin"`
	Visibility    string   `json:"visibility"`
	Modality      string   `json:"modality"`
	Modifiers     []string `json:"modifiers,omitempty"`
	Type          string   `json:"type,omitempty"`
	Params        []string `json:"params,omitempty"`
	Supertypes    []string `json:"supertypes,omitempty"`
}

// CLIType is the answer of a type-valued query.
type CLIType struct {
	Decl  string `json:"decl,omitempty"`
	Input string `json:"input,omitempty"`
	Type  string `json:"type"`
}

// CLIMangled is a binary name and descriptor.
type CLIMangled struct {
	Decl       string `json:"decl"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor,omitempty"`
}

// CLIVisibility is an effective visibility.
type CLIVisibility struct {
	Decl       string `json:"decl"`
	From       string `json:"from,omitempty"`
	Visibility string `json:"visibility"`
}

// CLIAnnotation is an evaluated annotation.
type CLIAnnotation struct {
	Class      string   `json:"class"`
	Unresolved bool     `json:"unresolved,omitempty"`
	Args       []CLIArg `json:"args,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// CLIArg is one evaluated annotation argument.
type CLIArg struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Default bool   `json:"default,omitempty"`
}

// CLIBuildReport summarizes a build.
type CLIBuildReport struct {
	Database     string   `json:"database"`
	Modules      int      `json:"modules"`
	Types        int      `json:"types"`
	Declarations int      `json:"declarations"`
	Changed      []string `json:"changed"`
	Removed      []string `json:"removed,omitempty"`
	Affected     []string `json:"affected"`
}

func declToCLI(d *graph.Declaration) CLIDecl {
	out := CLIDecl{
		ID:            d.ID,
		Name:          d.Name,
		QualifiedName: d.QualifiedName,
		Kind:          string(d.Kind),
		Origin:        string(d.Origin),
		Visibility:    string(d.Visibility),
		Modality:      string(d.Modality),
		Modifiers:     d.Modifiers.Strings(),
	}
	if d.Module != nil {
		out.Module = d.Module.Name
	}
	if t := d.Type(); t != nil {
		out.Type = types.Format(t)
	}
	for _, p := range d.Params() {
		s := p.Name + ": " + formatOrUnknown(p.Type)
		if p.Vararg {
			s = "vararg " + s
		}
		out.Params = append(out.Params, s)
	}
	if d.Kind.IsClassifier() {
		for _, st := range d.Supertypes() {
			out.Supertypes = append(out.Supertypes, types.Format(st))
		}
	}
	return out
}

func declsToCLI(ds []*graph.Declaration) []CLIDecl {
	out := make([]CLIDecl, 0, len(ds))
	for _, d := range ds {
		out = append(out, declToCLI(d))
	}
	return out
}

func annotationToCLI(ra *trellis.ResolvedAnnotation) CLIAnnotation {
	out := CLIAnnotation{Class: ra.Class, Unresolved: ra.Unresolved}
	if ra.Err != nil {
		out.Error = ra.Err.Error()
	}
	for _, a := range ra.Args {
		out.Args = append(out.Args, CLIArg{Name: a.Name, Value: formatValue(a.Value), Default: a.Default})
	}
	return out
}

// formatValue renders an annotation value in source-like form.
func formatValue(v trellis.AnnotationValue) string {
	switch v := v.(type) {
	case trellis.LiteralValue:
		if s, ok := v.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprint(v.Value)
	case trellis.EnumValue:
		return v.Class + "." + v.Entry
	case trellis.ClassValue:
		return types.Format(v.Type) + "::class"
	case trellis.ArrayValue:
		parts := make([]string, len(v.Elements))
		for i, el := range v.Elements {
			parts[i] = formatValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case trellis.NestedValue:
		a := annotationToCLI(v.Annotation)
		parts := make([]string, len(a.Args))
		for i, arg := range a.Args {
			parts[i] = arg.Name + " = " + arg.Value
		}
		return "@" + a.Class + "(" + strings.Join(parts, ", ") + ")"
	case trellis.ErrorValue:
		return "<error: " + v.Reason + ">"
	}
	return "<nil>"
}

func formatOrUnknown(t types.Type) string {
	if t == nil {
		return "?"
	}
	return types.Format(t)
}
