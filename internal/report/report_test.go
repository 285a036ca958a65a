package report

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

func fitness(v float64) *float64 {
	return &v
}

func TestRenderConvergence(t *testing.T) {
	samples := []domain.RunSample{
		{Generation: 0, BestFitness: fitness(0.1), MeanFitness: 0.05, ValidCount: 10},
		{Generation: 10, BestFitness: nil, MeanFitness: 0.07, ValidCount: 4},
		{Generation: 20, BestFitness: fitness(0.2), MeanFitness: 0.15, ValidCount: 10},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderConvergence(&buf, "run #1", samples, 4, 3))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestRenderConvergenceNoSamples(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderConvergence(&buf, "empty", nil, 4, 3), ErrNoSamples)

	// 全部不可行时同样没有可以画的点
	infeasible := []domain.RunSample{{Generation: 0, MeanFitness: math.NaN()}}
	assert.ErrorIs(t, RenderConvergence(&buf, "infeasible", infeasible, 4, 3), ErrNoSamples)
	assert.Zero(t, buf.Len())
}
