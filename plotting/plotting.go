// Package plotting renders diagnostic figures for estimated effects: the
// observed series against its counterfactual projection, and the null
// distribution produced by randomization inference.
package plotting

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/causalgo/causal"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// ObservedVsCounterfactual writes a time series plot with the observed
// outcomes and the model's counterfactual projection, with the intervention
// point marked. The output format follows the file extension (png, pdf, svg).
func ObservedVsCounterfactual(its *causal.InterruptedTimeSeries, path string) error {
	preFit, postProjection, err := its.Counterfactual()
	if err != nil {
		return err
	}
	preObserved, postObserved := its.Observed()
	breakIdx := its.PrePeriodLength()

	observed := make(plotter.XYs, 0, len(preObserved)+len(postObserved))
	for i, v := range preObserved {
		observed = append(observed, plotter.XY{X: float64(i), Y: v})
	}
	for i, v := range postObserved {
		observed = append(observed, plotter.XY{X: float64(breakIdx + i), Y: v})
	}

	counterfactual := make(plotter.XYs, 0, preFit.Len()+postProjection.Len())
	for i := 0; i < preFit.Len(); i++ {
		counterfactual = append(counterfactual, plotter.XY{X: float64(i), Y: preFit.AtVec(i)})
	}
	for i := 0; i < postProjection.Len(); i++ {
		counterfactual = append(counterfactual, plotter.XY{X: float64(breakIdx + i), Y: postProjection.AtVec(i)})
	}

	p := plot.New()
	p.Title.Text = "Observed vs Counterfactual"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "outcome"

	observedLine, err := plotter.NewLine(observed)
	if err != nil {
		return errors.Wrap(err, "plotting: observed series")
	}
	counterfactualLine, err := plotter.NewLine(counterfactual)
	if err != nil {
		return errors.Wrap(err, "plotting: counterfactual series")
	}
	counterfactualLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(observedLine, counterfactualLine)
	p.Legend.Add("observed", observedLine)
	p.Legend.Add("counterfactual", counterfactualLine)

	if err := addVerticalMarker(p, float64(breakIdx), observed); err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrap(err, "plotting: save")
	}
	return nil
}

// NullDistributionHistogram writes a histogram of the simulated null effects
// with the observed effect marked.
func NullDistributionHistogram(null []float64, observed float64, path string) error {
	if len(null) == 0 {
		return errors.NewValueError("NullDistributionHistogram", "empty null distribution")
	}
	p := plot.New()
	p.Title.Text = "Randomization Null Distribution"
	p.X.Label.Text = "effect"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(plotter.Values(null), 16)
	if err != nil {
		return errors.Wrap(err, "plotting: histogram")
	}
	p.Add(hist)

	marker, err := plotter.NewLine(plotter.XYs{{X: observed, Y: 0}, {X: observed, Y: float64(len(null)) / 4}})
	if err != nil {
		return errors.Wrap(err, "plotting: observed marker")
	}
	marker.LineStyle.Width = vg.Points(2)
	p.Add(marker)
	p.Legend.Add("observed", marker)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "plotting: save")
	}
	return nil
}

// addVerticalMarker draws a vertical line at x spanning the y range of pts.
func addVerticalMarker(p *plot.Plot, x float64, pts plotter.XYs) error {
	lo, hi := pts[0].Y, pts[0].Y
	for _, pt := range pts {
		if pt.Y < lo {
			lo = pt.Y
		}
		if pt.Y > hi {
			hi = pt.Y
		}
	}
	marker, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "plotting: intervention marker")
	}
	marker.LineStyle.Width = vg.Points(1)
	marker.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(marker)
	return nil
}
