package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.JDX")
	require.NoError(t, os.WriteFile(path, []byte("##TITLE=t\n##FIRSTX=0\n##LASTX=3\n##XYDATA=(X++(Y..Y))\n0 1 2 3 4\n##END=\n"), 0644))
	assert.True(t, IsTraceFile(path))

	s, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, s.X)
	assert.Equal(t, "t", s.Title())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.jdx"))
	assert.Error(t, err)
	assert.False(t, IsTraceFile("x.png"))
}
