package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/trellis/internal/types"
)

func TestNew_FiltersBySection(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, LoggerOpts{Level: slog.LevelDebug, Sections: []string{SectionMember}})

	Section(l, SectionMember).Debug("kept")
	Section(l, SectionOverride).Debug("dropped")
	l.Debug("inline section", "section", SectionMember)
	l.Debug("no section")

	out := buf.String()
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "inline section")
	assert.NotContains(t, out, "dropped")
	assert.NotContains(t, out, "no section")
}

func TestNew_WarnAlwaysPasses(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, LoggerOpts{Level: slog.LevelDebug, Sections: []string{SectionMember}})

	Section(l, SectionOverride).Warn("inconsistent")
	assert.Contains(t, buf.String(), "inconsistent")
}

func TestNew_NoSectionsEnablesAll(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, LoggerOpts{Level: slog.LevelInfo})

	Section(l, SectionStore).Info("saved")
	l.Debug("below level")
	assert.Contains(t, buf.String(), "section=store")
	assert.NotContains(t, buf.String(), "below level")
	assert.NotContains(t, buf.String(), "time=")
}

func TestType_LazyFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, LoggerOpts{Level: slog.LevelInfo, JSON: true})
	l.Info("typed", "type", Type(types.MakeNullable(types.Class("kotlin.String"))))
	assert.Contains(t, buf.String(), `"type":"kotlin.String?"`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
