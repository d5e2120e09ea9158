package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalConstant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want any
	}{
		{`42`, int64(42)},
		{`60 * 1000`, int64(60000)},
		{`10L`, int64(10)},
		{`1_000`, int64(1000)},
		{`1.5f`, 1.5},
		{`"a" + "b"`, "ab"},
		{`"10L stays"`, "10L stays"},
		{`true`, true},
		{`!false`, true},
		{`nil`, nil},
		{`[1, 2]`, []any{int64(1), int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			got, err := EvalConstant(context.Background(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalConstant_Invalid(t *testing.T) {
	t.Parallel()
	_, err := EvalConstant(context.Background(), `1 +`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime: constant")
}

func TestNormalizeConstant(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "10 + 2", normalizeConstant("10L + 2uL"))
	assert.Equal(t, "x1L", normalizeConstant("x1L"))
	assert.Equal(t, "1e10", normalizeConstant("1e10"))
	assert.Equal(t, `"5f"`, normalizeConstant(`"5f"`))
	assert.Equal(t, "0x1f", normalizeConstant("0x1f"))
}
