package trace

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenarioImplicitStep(t *testing.T) {
	doc := strings.Join([]string{
		"##TITLE=ethanol",
		"##FIRSTX=0",
		"##LASTX=10",
		"##XYDATA=(X++(Y..Y))",
		"0 1 2 3 4",
		"##END=",
	}, "\n")

	s := ParseString(doc)
	require.Equal(t, 4, s.Len())
	want := []float64{0, 10.0 / 3, 20.0 / 3, 10}
	for i, x := range want {
		assert.InDelta(t, x, s.X[i], 1e-9, "x[%d]", i)
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Y)
	assert.Equal(t, "ethanol", s.Title())
	assert.Equal(t, "(X++(Y..Y))", s.Meta["XYDATA"])
	assert.Contains(t, s.Meta, "END")
}

func TestParseStepPropertyForSampleCounts(t *testing.T) {
	for n := 2; n <= 16; n++ {
		for _, xf := range []float64{1, 0.5, 2} {
			ys := make([]string, n)
			for i := range ys {
				ys[i] = fmt.Sprint(i + 1)
			}
			doc := fmt.Sprintf("##FIRSTX=100\n##LASTX=400\n##XFACTOR=%g\n##XYDATA=(X++(Y..Y))\n100 %s\n##END=\n",
				xf, strings.Join(ys, " "))

			s := ParseString(doc)
			require.Equal(t, n, s.Len())
			step := 300.0 / float64(n-1) * xf
			for i := 1; i < n; i++ {
				assert.InDelta(t, step, s.X[i]-s.X[i-1], 1e-9, "n=%d xfactor=%g", n, xf)
			}
		}
	}
}

func TestParseDeltaXAndFactors(t *testing.T) {
	doc := `##TITLE=scaled
##DELTAX=-0.5
##XFACTOR=2
##YFACTOR=10
##XYDATA=(X++(Y..Y))
5 1 2 3
4 4 5
##END=`

	s := ParseString(doc)
	assert.Equal(t, []float64{10, 9, 8, 8, 7}, s.X)
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, s.Y)
}

func TestParseNPointsWinsOverLineCount(t *testing.T) {
	doc := `##FIRSTX=0
##LASTX=5
##NPOINTS=6
##XYDATA=(X++(Y..Y))
0 1 2 3
3 4 5 6
##END=`

	s := ParseString(doc)
	require.Equal(t, 6, s.Len())
	for i := range s.X {
		assert.InDelta(t, float64(i), s.X[i], 1e-9)
	}
}

func TestParseFallsBackToXFactorStep(t *testing.T) {
	s := ParseString("##XFACTOR=3\n##XYDATA=(X++(Y..Y))\n1 7 8\n")
	assert.Equal(t, []float64{3, 6}, s.X)
	assert.Equal(t, []float64{7, 8}, s.Y)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	doc := `##TITLE=noisy
##FIRSTX=abc
##XYDATA=(X++(Y..Y))
garbage line
1
2 x
3 NaN 4
4 5 $$ trailing comment
5,6,7
##END=
9 9 9`

	s := ParseString(doc)
	assert.Equal(t, "abc", s.Meta["FIRSTX"])
	assert.Equal(t, []float64{4, 5, 5, 6}, s.Y)
	assert.Equal(t, []float64{3, 4, 5, 6}, s.X)
}

func TestParseNewTagClosesDataBlock(t *testing.T) {
	doc := "##XYDATA=(X++(Y..Y))\n1 1\n##PEAK TABLE=(XY..XY)\n2 2\n##XYDATA=(X++(Y..Y))\n3 3\n"
	s := ParseString(doc)
	assert.Equal(t, []float64{1, 3}, s.X)
	assert.Equal(t, "(XY..XY)", s.Meta["PEAK TABLE"])
}

func TestParseEmptyInput(t *testing.T) {
	s, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	_, _, _, _, ok := s.Bounds()
	assert.False(t, ok)
}

func TestParseLowercaseTagsUppercased(t *testing.T) {
	s := ParseString("##title=Lower\n##firstx=0\n##lastx=2\n##xydata=(X++(Y..Y))\n0 1 2 3\n")
	assert.Equal(t, "Lower", s.Meta["TITLE"])
	assert.Equal(t, []float64{0, 1, 2}, s.X)
}
