package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/nodecast/internal/dataset"
)

// SaveLossPlot writes the train and validation curves as a PNG.
func SaveLossPlot(path string, train, val []float64) error {
	p := plot.New()
	p.Title.Text = "training curves"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "mse"

	trainLine, err := plotter.NewLine(seriesXY(train))
	if err != nil {
		return err
	}
	trainLine.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	trainLine.Width = vg.Points(1.2)

	valLine, err := plotter.NewLine(seriesXY(val))
	if err != nil {
		return err
	}
	valLine.Color = color.RGBA{R: 220, G: 80, B: 60, A: 255}
	valLine.Width = vg.Points(1.2)

	p.Add(plotter.NewGrid(), trainLine, valLine)
	p.Legend.Add("train", trainLine)
	p.Legend.Add("val", valLine)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// SaveForecastPlot writes one trajectory's reference and forecast as a PNG.
// The forecast is aligned to the tail of the reference.
func SaveForecastPlot(path, title string, reference, forecast *dataset.Trajectories, index int) error {
	if index >= reference.N || index >= forecast.N {
		return fmt.Errorf("trajectory %d out of range", index)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "value"

	ref := make(plotter.XYs, reference.T)
	for t := 0; t < reference.T; t++ {
		ref[t] = plotter.XY{X: float64(t), Y: reference.At(index, t, 0)}
	}
	offset := reference.T - forecast.T
	fc := make(plotter.XYs, forecast.T)
	for t := 0; t < forecast.T; t++ {
		fc[t] = plotter.XY{X: float64(offset + t), Y: forecast.At(index, t, 0)}
	}

	refLine, err := plotter.NewLine(ref)
	if err != nil {
		return err
	}
	refLine.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	fcLine, err := plotter.NewLine(fc)
	if err != nil {
		return err
	}
	fcLine.Color = color.RGBA{R: 220, G: 80, B: 60, A: 255}
	fcLine.Width = vg.Points(1.5)

	p.Add(plotter.NewGrid(), refLine, fcLine)
	p.Legend.Add("observed", refLine)
	p.Legend.Add("forecast", fcLine)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

func seriesXY(series []float64) plotter.XYs {
	out := make(plotter.XYs, len(series))
	for i, v := range series {
		out[i] = plotter.XY{X: float64(i), Y: v}
	}
	return out
}
