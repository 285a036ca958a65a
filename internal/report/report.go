// Package report 把求解过程中的进度采样绘制成收敛曲线
package report

import (
	"errors"
	"io"
	"math"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoSamples = errors.New("没有可用于绘图的进度采样")

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RenderConvergence 以 PNG 格式输出每一代的最优适应度与平均适应度，width 和 height 的单位是英寸。
// 不可行的最优个体和非有限的平均值不会出现在曲线上。
func RenderConvergence(w io.Writer, title string, samples []domain.RunSample, width, height float64) error {
	bestPts := make(plotter.XYs, 0, len(samples))
	meanPts := make(plotter.XYs, 0, len(samples))

	for _, sample := range samples {
		if sample.BestFitness != nil && finite(*sample.BestFitness) {
			bestPts = append(bestPts, plotter.XY{X: float64(sample.Generation), Y: *sample.BestFitness})
		}
		if sample.ValidCount > 0 && finite(sample.MeanFitness) {
			meanPts = append(meanPts, plotter.XY{X: float64(sample.Generation), Y: sample.MeanFitness})
		}
	}

	if len(bestPts) == 0 && len(meanPts) == 0 {
		return ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "fitness"
	p.Add(plotter.NewGrid())

	if len(bestPts) > 0 {
		bestLine, err := plotter.NewLine(bestPts)
		if err != nil {
			return err
		}
		bestLine.Color = plotutil.Color(0)
		p.Add(bestLine)
		p.Legend.Add("best", bestLine)
	}

	if len(meanPts) > 0 {
		meanLine, err := plotter.NewLine(meanPts)
		if err != nil {
			return err
		}
		meanLine.Color = plotutil.Color(1)
		meanLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(meanLine)
		p.Legend.Add("mean", meanLine)
	}

	p.Legend.Top = true

	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return err
	}

	_, err = wt.WriteTo(w)
	return err
}
