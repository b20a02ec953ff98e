package foc

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

const sample = `warmup vq: 0.000,time: 999,PATH:0x80000000-ffff
vq: 0.000,time: 120,PATH:0x80000000-0101

vq: 1.571,time: 140,PATH:0x80000000-0110
  vq: 3.142,time: 125,PATH:0x80000000-0101
`

func smallOptions() Options {
	return Options{Radius: 0.8, Width: 8 * vg.Inch, Height: 4 * vg.Inch, DPI: 25}
}

func TestParse(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	want := &Dataset{
		Records: []Record{
			{Angle: 0, Time: 120, Path: "0101"},
			{Angle: 1.571, Time: 140, Path: "0110"},
			{Angle: 3.142, Time: 125, Path: "0101"},
		},
		Paths: []string{"0101", "0110"},
	}
	if diff := cmp.Diff(want, ds); diff != "" {
		t.Errorf("dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ExtraFieldsAndSegments(t *testing.T) {
	ds, err := Parse(strings.NewReader("vq: 0.5,time: 7,PATH:0x1-ab-cd,extra\n"))
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "ab", ds.Records[0].Path)
}

func TestParse_OnlyWarmup(t *testing.T) {
	ds, err := Parse(strings.NewReader("warmup vq: 0.1,time: 1,PATH:x-y\n\n"))
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Empty(t, ds.Paths)
}

func TestParse_MalformedRowsCollected(t *testing.T) {
	in := strings.Join([]string{
		"vq: 0.1,time: 1,PATH:x-a",
		"vq: 0.1,time: 1",
		"vq: abc,time: 1,PATH:x-a",
		"vq: 0.1,time: 1.5,PATH:x-a",
		"vq: 0.1,time: 1,PATH:nodash",
		"vq=0.1,time: 1,PATH:x-a",
	}, "\n")

	ds, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Nil(t, ds, "no partial results")
	assert.True(t, errors.Is(err, ErrMalformedRow))

	var lines []int
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var re *RowError
		require.True(t, errors.As(e, &re))
		lines = append(lines, re.Line)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6}, lines)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "trace.foc.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGroups(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	groups := ds.Groups()
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
	assert.Equal(t, 1.571, groups[1][0].Angle)
}

func TestPalette(t *testing.T) {
	assert.Nil(t, Palette(0))

	one := Palette(1)
	require.Len(t, one, 1)
	assert.Equal(t, color.NRGBA{R: 128, G: 0, B: 255, A: 255}, one[0])

	two := Palette(2)
	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 255}, two[1])

	cols := Palette(7)
	seen := make(map[color.NRGBA]bool)
	for _, c := range cols {
		assert.False(t, seen[c], "duplicate colour %v", c)
		seen[c] = true
	}
}

func TestPolarPoint(t *testing.T) {
	x, y := PolarPoint(0, 0.8)
	assert.InDelta(t, 0.8, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, y = PolarPoint(math.Pi, 0.8)
	assert.InDelta(t, -0.8, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, y = PolarPoint(math.Pi/2, 0.8)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0.8, y, 1e-9)
}

func TestLegendLabel(t *testing.T) {
	assert.Equal(t, "Path: 0101...", LegendLabel("0101"))
	assert.Equal(t, "Path: 0123456789...", LegendLabel("0123456789abcdef"))
	assert.Equal(t, "Path: ...", LegendLabel(""))
}

func TestNewFigure(t *testing.T) {
	ds := &Dataset{
		Records: []Record{
			{Angle: 0, Time: 10, Path: "a"},
			{Angle: math.Pi, Time: 20, Path: "b"},
			{Angle: math.Pi / 2, Time: 30, Path: "a"},
		},
		Paths: []string{"a", "b"},
	}

	fig, err := NewFigure(ds, 0.8)
	require.NoError(t, err)
	require.Len(t, fig.PolarSeries, 2)
	require.Len(t, fig.TimingSeries, 2)

	total := 0
	for i := range fig.PolarSeries {
		assert.Equal(t, fig.PolarSeries[i].GlyphStyle.Color, fig.TimingSeries[i].GlyphStyle.Color,
			"both panels share the path colour")
		total += len(fig.TimingSeries[i].XYs)
	}
	assert.Equal(t, 3, total)
	assert.NotEqual(t, fig.PolarSeries[0].GlyphStyle.Color, fig.PolarSeries[1].GlyphStyle.Color)

	// Angle pi lands on the left of the circle.
	b := fig.PolarSeries[1].XYs[0]
	assert.InDelta(t, -0.8, b.X, 1e-9)
	assert.InDelta(t, 0, b.Y, 1e-9)

	assert.Equal(t, 20.0, fig.TimingSeries[1].XYs[0].Y)
	assert.Equal(t, -1.0, fig.Polar.X.Min)
	assert.Equal(t, 1.0, fig.Polar.Y.Max)
}

func TestNewFigure_BadRadius(t *testing.T) {
	_, err := NewFigure(&Dataset{}, 0)
	assert.Error(t, err)
}

func TestRenderPNG(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(ds, &buf, smallOptions()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestSaveImage(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "foc.png")
	require.NoError(t, SaveImage(ds, path, smallOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestSaveImage_EmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foc.png")
	require.NoError(t, SaveImage(&Dataset{}, path, smallOptions()))
	assert.FileExists(t, path)
}

func TestViewerCommand(t *testing.T) {
	name, args := viewerCommand("linux", "foc.png")
	assert.Equal(t, "xdg-open", name)
	assert.Equal(t, []string{"foc.png"}, args)

	name, _ = viewerCommand("darwin", "foc.png")
	assert.Equal(t, "open", name)

	name, args = viewerCommand("windows", "foc.png")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, "foc.png", args[len(args)-1])
}

func TestShow_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Show(ctx, "foc.png"), context.Canceled)
}
