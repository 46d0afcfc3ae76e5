package render

import (
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderStation stretches img over hidden axes under a station title.
// The pixels are drawn as fetched.
func RenderStation(img image.Image, station string, o Options, path string) (Output, error) {
	o = o.withDefaults(10*vg.Inch, 10*vg.Inch, color.White)
	fig := NewFigure(o)
	defer fig.Close()

	p := plot.New()
	p.HideAxes()
	p.Title.TextStyle = textStyle(14, color.Black, true)
	p.Title.Padding = vg.Points(20)
	p.Title.Text = "NOAA NEXRAD Radar - Station " + station + "\n" + o.Clock.Now().UTC().Format(minuteLayout)

	b := img.Bounds()
	p.Add(plotter.NewImage(img, 0, 0, float64(b.Dx()), float64(b.Dy())))
	p.X.Min, p.X.Max = 0, float64(b.Dx())
	p.Y.Min, p.Y.Max = 0, float64(b.Dy())

	p.Draw(sub(fig.Canvas(), 0.03, 0.03, 0.97, 0.97))
	return saveFigure(fig, path)
}
