package foc

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"tracekit/internal/logging"
)

const (
	polarTitle  = "Sin() Function Execution Paths\nColor represents different branch paths"
	timingTitle = "Execution Time per Input"

	pointAlpha  = 0.7
	gridAlpha   = 0.3
	guideRings  = 4
	guideSpokes = 12
	labelLen    = 10
)

var (
	guideColor = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x80}
	gridColor  = withAlpha(color.NRGBA{R: 0x80, G: 0x80, B: 0x80}, gridAlpha)
)

// Options controls the rendered figure.
type Options struct {
	Radius float64 // polar circle radius in data units
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// DefaultOptions returns a 20x8 inch figure at 100 dpi with radius 0.8.
func DefaultOptions() Options {
	return Options{
		Radius: 0.8,
		Width:  20 * vg.Inch,
		Height: 8 * vg.Inch,
		DPI:    100,
	}
}

// PolarPoint places angle on a circle of the given radius.
func PolarPoint(angle, radius float64) (x, y float64) {
	return radius * math.Cos(angle), radius * math.Sin(angle)
}

// LegendLabel is the legend entry for a path identifier.
func LegendLabel(path string) string {
	r := []rune(path)
	if len(r) > labelLen {
		r = r[:labelLen]
	}
	return "Path: " + string(r) + "..."
}

// Figure is the two-panel plot plus the legend shared by both panels.
// Series are aligned with the dataset's Paths.
type Figure struct {
	Polar  *plot.Plot
	Timing *plot.Plot
	Legend plot.Legend

	PolarSeries  []*plotter.Scatter
	TimingSeries []*plotter.Scatter
}

// NewFigure builds both panels for ds.
func NewFigure(ds *Dataset, radius float64) (*Figure, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %g", radius)
	}

	f := &Figure{
		Polar:  plot.New(),
		Timing: plot.New(),
		Legend: plot.NewLegend(),
	}
	f.Legend.Top = true

	if err := f.addPolarGuides(radius); err != nil {
		return nil, err
	}

	f.Timing.Title.Text = timingTitle
	f.Timing.X.Label.Text = "Input angle (radians)"
	f.Timing.Y.Label.Text = "Execution time"
	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	f.Timing.Add(grid)

	colors := Palette(len(ds.Paths))
	for i, group := range ds.Groups() {
		polarXYs := make(plotter.XYs, len(group))
		timingXYs := make(plotter.XYs, len(group))
		for j, rec := range group {
			polarXYs[j].X, polarXYs[j].Y = PolarPoint(rec.Angle, radius)
			timingXYs[j].X, timingXYs[j].Y = rec.Angle, float64(rec.Time)
		}

		style := draw.GlyphStyle{
			Color:  withAlpha(colors[i], pointAlpha),
			Radius: vg.Points(5),
			Shape:  draw.CircleGlyph{},
		}
		ps, err := plotter.NewScatter(polarXYs)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", ds.Paths[i], err)
		}
		ps.GlyphStyle = style
		ts, err := plotter.NewScatter(timingXYs)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", ds.Paths[i], err)
		}
		ts.GlyphStyle = style

		f.Polar.Add(ps)
		f.Timing.Add(ts)
		f.PolarSeries = append(f.PolarSeries, ps)
		f.TimingSeries = append(f.TimingSeries, ts)
		f.Legend.Add(LegendLabel(ds.Paths[i]), ps)
	}

	// Fixed view so the circle is never clipped by autoscaling.
	f.Polar.X.Min, f.Polar.X.Max = -1, 1
	f.Polar.Y.Min, f.Polar.Y.Max = -1, 1
	return f, nil
}

func (f *Figure) addPolarGuides(radius float64) error {
	p := f.Polar
	p.Title.Text = polarTitle
	p.HideAxes()

	for k := 1; k <= guideRings; k++ {
		ring, err := circle(radius * float64(k) / guideRings)
		if err != nil {
			return err
		}
		ring.LineStyle.Color = guideColor
		ring.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(ring)
	}

	for k := 0; k < guideSpokes; k++ {
		x, y := PolarPoint(2*math.Pi*float64(k)/guideSpokes, 1)
		spoke, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: x, Y: y}})
		if err != nil {
			return err
		}
		spoke.LineStyle.Color = guideColor
		spoke.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(spoke)
	}

	outline, err := circle(radius)
	if err != nil {
		return err
	}
	outline.LineStyle.Color = color.Black
	outline.LineStyle.Width = vg.Points(1)
	p.Add(outline)

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: radius + 0.1, Y: 0}, {X: -(radius + 0.1), Y: 0}},
		Labels: []string{"0", "π"},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].XAlign = text.XLeft
	labels.TextStyle[1].XAlign = text.XRight
	for i := range labels.TextStyle {
		labels.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(labels)
	return nil
}

func circle(r float64) (*plotter.Line, error) {
	const segments = 100
	xys := make(plotter.XYs, segments+1)
	for i := range xys {
		xys[i].X, xys[i].Y = PolarPoint(2*math.Pi*float64(i)/segments, r)
	}
	return plotter.NewLine(xys)
}

// Draw lays both panels side by side with the legend in a strip on the right.
func (f *Figure) Draw(c draw.Canvas) {
	size := c.Size()
	legendW := min(2.5*vg.Inch, size.X/4)

	panels := draw.Crop(c, 0, -legendW, 0, 0)
	legend := draw.Crop(c, size.X-legendW, 0, 0, -vg.Inch/2)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Inch / 2,
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(10),
	}
	canvases := plot.Align([][]*plot.Plot{{f.Polar, f.Timing}}, tiles, panels)
	f.Polar.Draw(canvases[0][0])
	f.Timing.Draw(canvases[0][1])
	f.Legend.Draw(legend)
}

// Render draws ds onto a new image canvas.
func Render(ds *Dataset, opts Options) (*vgimg.Canvas, error) {
	fig, err := NewFigure(ds, opts.Radius)
	if err != nil {
		return nil, err
	}
	c := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	fig.Draw(draw.New(c))
	return c, nil
}

// RenderPNG renders ds as PNG to w.
func RenderPNG(ds *Dataset, w io.Writer, opts Options) error {
	c, err := Render(ds, opts)
	if err != nil {
		return err
	}
	_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

// SaveImage renders ds as PNG to path, replacing any existing file.
func SaveImage(ds *Dataset, path string, opts Options) error {
	timer := logging.StartTimer(logging.CategoryPlot, "render "+path)
	defer timer.Stop()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderPNG(ds, f, opts); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logging.Plot("saved %s (%d paths, %d points)", path, len(ds.Paths), len(ds.Records))
	return nil
}
