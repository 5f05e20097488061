package trainer

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// SavePlot writes a bar chart of the test scores with the acceptance
// threshold drawn as a horizontal line. The format follows the file
// extension (png, svg, pdf).
func (r *Report) SavePlot(filename string) error {
	p := plot.New()
	p.Title.Text = "Candidate test R²"
	p.Y.Label.Text = "R²"

	values := make(plotter.Values, len(r.Entries))
	names := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		values[i] = e.Score
		names[i] = e.Name
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "building bar chart")
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(bars)
	p.NominalX(names...)

	line, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: r.Threshold},
		{X: float64(len(r.Entries)) - 0.5, Y: r.Threshold},
	})
	if err != nil {
		return errors.Wrap(err, "building threshold line")
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	line.LineStyle.Color = color.RGBA{R: 200, A: 255}
	p.Add(line)
	p.Legend.Add("threshold", line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errors.Wrapf(err, "saving report plot %s", filename)
	}
	return nil
}
