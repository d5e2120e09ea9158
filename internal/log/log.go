// Package log provides the slog handler used across trellis. Records are
// tagged with a "section" attribute and filtered per section below Warn.
package log

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/jward/trellis/internal/types"
)

// Sections used by the engine.
const (
	SectionGraph      = "graph"
	SectionMember     = "member"
	SectionOverride   = "override"
	SectionBridge     = "bridge"
	SectionAnnotation = "annotation"
	SectionJavaSrc    = "javasrc"
	SectionStore      = "store"
	SectionRuntime    = "runtime"
)

// LoggerOpts configures New.
type LoggerOpts struct {
	Level slog.Level
	// Sections enabled below Warn. Empty enables every section.
	Sections []string
	JSON     bool
	Source   bool
}

// New returns a logger writing to w.
func New(w io.Writer, opts LoggerOpts) *slog.Logger {
	hopts := &slog.HandlerOptions{
		AddSource: opts.Source,
		Level:     opts.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "time" {
				return slog.Attr{}
			}
			return a
		},
	}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(&filteringHandler{underlying: h, enabled: opts.Sections})
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Section returns l tagged with the given section.
func Section(l *slog.Logger, name string) *slog.Logger {
	return l.With("section", name)
}

// ParseLevel maps debug/info/warn/error to a level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Type renders t lazily, only when the record is actually written.
func Type(t types.Type) slog.LogValuer { return typeLogValuer{t} }

type typeLogValuer struct{ t types.Type }

func (l typeLogValuer) LogValue() slog.Value {
	if l.t == nil {
		return slog.StringValue("<nil>")
	}
	return slog.StringValue(types.Format(l.t))
}

var _ slog.Handler = &filteringHandler{}

type filteringHandler struct {
	underlying slog.Handler
	enabled    []string
	// sections attached through WithAttrs
	sections []string
}

func (f *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.underlying.Enabled(ctx, level)
}

func (f *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelWarn || len(f.enabled) == 0 {
		return f.underlying.Handle(ctx, record)
	}
	want := slices.ContainsFunc(f.sections, f.wants)
	if !want {
		record.Attrs(func(attr slog.Attr) bool {
			want = attr.Key == "section" && f.wants(attr.Value.String())
			return !want
		})
	}
	if !want {
		return nil
	}
	return f.underlying.Handle(ctx, record)
}

func (f *filteringHandler) wants(section string) bool {
	return slices.ContainsFunc(f.enabled, func(s string) bool {
		return strings.HasPrefix(section, s)
	})
}

func (f *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sections := slices.Clone(f.sections)
	for _, attr := range attrs {
		if attr.Key == "section" {
			sections = append(sections, attr.Value.String())
		}
	}
	return &filteringHandler{
		underlying: f.underlying.WithAttrs(attrs),
		enabled:    f.enabled,
		sections:   sections,
	}
}

func (f *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{
		underlying: f.underlying.WithGroup(name),
		enabled:    f.enabled,
		sections:   f.sections,
	}
}
