package evolution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeanStdDevStaysFinite(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		mean float64
		std  float64
	}{
		{"普通的适应度", []float64{1, 2, 3, 4}, 2.5, math.Sqrt(5.0 / 3)},
		{"全部是最大值", []float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}, math.MaxFloat64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := meanStdDev(tt.xs)
			require.InDelta(t, tt.mean, mean, 1e-9*math.Max(1, math.Abs(tt.mean)))
			require.InDelta(t, tt.std, std, 1e-9)
		})
	}

	// 最大值和普通值混合时均值仍然有限，标准差溢出后取最大值
	mean, std := meanStdDev([]float64{math.MaxFloat64, 0.25})
	require.True(t, isFinite(mean))
	require.Greater(t, mean, 0.25)
	require.Equal(t, math.MaxFloat64, std)
}
