// Package render draws reflectivity figures with gonum/plot and writes them
// as PNG. Every figure is built from explicit options; nothing here keeps
// package-level plotting state.
package render

import (
	"bufio"
	"image/color"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DPI of every PNG written.
const DPI = 150

// Options shared by all figures.
type Options struct {
	Width, Height vg.Length
	DPI           int
	Background    color.Color
	// Clock stamps titles and footers.
	Clock clockwork.Clock
}

func (o Options) withDefaults(w, h vg.Length, bg color.Color) Options {
	if o.Width == 0 {
		o.Width = w
	}
	if o.Height == 0 {
		o.Height = h
	}
	if o.DPI == 0 {
		o.DPI = DPI
	}
	if o.Background == nil {
		o.Background = bg
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Figure is a raster canvas being drawn on.
type Figure struct {
	canvas *vgimg.Canvas
	dc     draw.Canvas
}

// NewFigure allocates a canvas of the given physical size filled with the
// background color.
func NewFigure(o Options) *Figure {
	c := vgimg.NewWith(
		vgimg.UseWH(o.Width, o.Height),
		vgimg.UseDPI(o.DPI),
		vgimg.UseBackgroundColor(o.Background),
	)
	return &Figure{canvas: c, dc: draw.New(c)}
}

// Canvas is the full drawing area.
func (f *Figure) Canvas() draw.Canvas { return f.dc }

// Pixels returns the raster size.
func (f *Figure) Pixels() (w, h int) {
	b := f.canvas.Image().Bounds()
	return b.Dx(), b.Dy()
}

// Save encodes the figure as PNG at path and returns the number of bytes written.
func (f *Figure) Save(path string) (int64, error) {
	if f.canvas == nil {
		return 0, errors.New("figure already closed")
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create output")
	}
	w := bufio.NewWriter(out)
	n, err := vgimg.PngCanvas{Canvas: f.canvas}.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, errors.Wrapf(err, "write png %s", path)
	}
	return n, nil
}

// Close drops the raster. Safe to call more than once.
func (f *Figure) Close() {
	f.canvas = nil
}

// Output describes a written figure.
type Output struct {
	Path          string
	Bytes         int64
	Width, Height int
}

func saveFigure(f *Figure, path string) (Output, error) {
	n, err := f.Save(path)
	if err != nil {
		return Output{}, err
	}
	w, h := f.Pixels()
	return Output{Path: path, Bytes: n, Width: w, Height: h}, nil
}

// sub returns the part of c between the given fractions of its width and height.
func sub(c draw.Canvas, x0, y0, x1, y1 float64) draw.Canvas {
	size := c.Rectangle.Size()
	return draw.Crop(c,
		vg.Length(x0)*size.X, -vg.Length(1-x1)*size.X,
		vg.Length(y0)*size.Y, -vg.Length(1-y1)*size.Y,
	)
}

// textStyle is a Liberation Sans style of the given size and color.
func textStyle(size vg.Length, c color.Color, bold bool) text.Style {
	f := font.Font{Typeface: "Liberation", Variant: "Sans", Size: size}
	if bold {
		f.Weight = xfont.WeightBold
	}
	return text.Style{
		Color:   c,
		Font:    f,
		XAlign:  text.XCenter,
		YAlign:  text.YCenter,
		Handler: plot.DefaultTextHandler,
	}
}

// styleAxes applies font, color, and size to a plot's title and axes,
// keeping the default alignments and rotations.
func styleAxes(p *plot.Plot, fg color.Color, titleSize, labelSize, tickSize vg.Length) {
	p.Title.TextStyle = textStyle(titleSize, fg, true)
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		restyle(&ax.Label.TextStyle, labelSize, fg)
		restyle(&ax.Tick.Label, tickSize, fg)
		ax.LineStyle.Color = fg
		ax.Tick.LineStyle.Color = fg
	}
}

func restyle(sty *text.Style, size vg.Length, c color.Color) {
	sty.Font.Typeface = "Liberation"
	sty.Font.Variant = "Sans"
	sty.Font.Size = size
	sty.Color = c
}

// outlinedText draws txt with a stroke of the given width around the glyphs.
func outlinedText(c draw.Canvas, sty text.Style, pt vg.Point, txt string, stroke color.Color, width vg.Length) {
	halo := sty
	halo.Color = stroke
	r := width / 2
	for _, d := range [][2]float64{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}} {
		c.FillText(halo, vg.Point{X: pt.X + vg.Length(d[0])*r, Y: pt.Y + vg.Length(d[1])*r}, txt)
	}
	c.FillText(sty, pt, txt)
}
