package explore

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// Chart names served by the API.
const (
	ChartSalesHistogram = "sales-histogram"
	ChartStoreTotals    = "store-totals"
)

var (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// RenderSalesHistogram draws the weekly-sales distribution as a PNG.
func RenderSalesHistogram(w io.Writer, sales []float64, bins int) error {
	vals := make(plotter.Values, 0, len(sales))
	for _, v := range sales {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return failure.Newf(failure.Empty, "chart "+ChartSalesHistogram, "no weekly sales to plot")
	}
	if bins <= 0 {
		bins = HistogramBins
	}

	p := plot.New()
	p.Title.Text = "Weekly sales distribution"
	p.X.Label.Text = "Weekly sales"
	p.Y.Label.Text = "Rows"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 50, G: 110, B: 200, A: 255}
	p.Add(h)
	return writePNG(p, w)
}

// RenderStoreTotals draws total sales per store as a bar chart, in the order
// given.
func RenderStoreTotals(w io.Writer, totals []StoreTotal) error {
	if len(totals) == 0 {
		return failure.Newf(failure.Empty, "chart "+ChartStoreTotals, "no store totals to plot")
	}
	vals := make(plotter.Values, len(totals))
	names := make([]string, len(totals))
	for i, t := range totals {
		vals[i] = t.Total
		names[i] = strconv.Itoa(t.Store)
	}

	p := plot.New()
	p.Title.Text = "Total sales per store"
	p.Y.Label.Text = "Sales"

	bars, err := plotter.NewBarChart(vals, vg.Points(8))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	p.Add(bars)
	p.NominalX(names...)
	return writePNG(p, w)
}

func writePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
