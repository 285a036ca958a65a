package route_test

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/evolution"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/route"
)

func randomPoints(rng *rand.Rand, n int) []route.Point {
	points := make([]route.Point, n)
	for i := range points {
		points[i] = route.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
	}
	return points
}

func unitSquare() []route.Point {
	return []route.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
}

func TestNewProblemRejectsBadInput(t *testing.T) {
	_, err := route.NewProblem(nil, 0)
	require.ErrorIs(t, err, route.ErrNoPoints)

	_, err = route.NewProblem(unitSquare(), 4)
	require.ErrorIs(t, err, route.ErrAnchorOutOfRange)
}

func TestRandomTourIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p, err := route.NewProblem(randomPoints(rng, 12), 5)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, route.ValidateTour(p.Random(rng), 12, 5))
	}
}

func TestOrderCrossoverKeepsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, n := range []int{1, 2, 3, 4, 9, 20} {
		p, err := route.NewProblem(randomPoints(rng, n), rng.Intn(n))
		require.NoError(t, err)

		for i := 0; i < 300; i++ {
			p1 := p.Random(rng)
			p2 := p.Random(rng)
			child := p.Crossover(rng, p1, p2)

			require.NoError(t, route.ValidateTour(child, n, p.Anchor), "n=%d p1=%v p2=%v child=%v", n, p1, p2, child)
			require.NoError(t, route.ValidateTour(p1, n, p.Anchor), "交叉不应该修改父本")
		}
	}
}

func TestOrderCrossoverCopiesSegmentAndFillsInOrder(t *testing.T) {
	p, err := route.NewProblem(randomPoints(rand.New(rand.NewSource(3)), 6), 0)
	require.NoError(t, err)

	p1 := route.Tour{0, 1, 2, 3, 4, 5, 0}
	p2 := route.Tour{0, 5, 4, 3, 2, 1, 0}

	// 父本相同时子代与父本一致
	rng := rand.New(rand.NewSource(4))
	require.Equal(t, p1, p.Crossover(rng, p1, p1))

	for i := 0; i < 100; i++ {
		child := p.Crossover(rng, p1, p2)

		// 找出照抄父本 1 的那一段之外的城市，它们必须保持父本 2 中的相对顺序
		var rest []int
		for pos := 1; pos <= 5; pos++ {
			if child[pos] != p1[pos] {
				rest = append(rest, child[pos])
			}
		}
		for k := 1; k < len(rest); k++ {
			require.Greater(t, rest[k-1], rest[k], "child=%v", child)
		}
	}
}

func TestOrderCrossoverCopiesAtLeastTwoCities(t *testing.T) {
	p, err := route.NewProblem(randomPoints(rand.New(rand.NewSource(6)), 8), 0)
	require.NoError(t, err)

	// 父本 2 的中间部分相对父本 1 循环移动了一位，任何位置上两者都不相同
	p1 := route.Tour{0, 1, 2, 3, 4, 5, 6, 7, 0}
	p2 := route.Tour{0, 7, 1, 2, 3, 4, 5, 6, 0}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		child := p.Crossover(rng, p1, p2)

		// 照抄的一段至少包含两个相邻位置
		copied := false
		for pos := 1; pos < 7; pos++ {
			if child[pos] == p1[pos] && child[pos+1] == p1[pos+1] {
				copied = true
				break
			}
		}
		require.True(t, copied, "child=%v", child)
	}

	// 只有两个中间城市时切点固定为 [1, 2]，子代就是父本 1
	p3, err := route.NewProblem(randomPoints(rng, 3), 0)
	require.NoError(t, err)
	require.Equal(t, route.Tour{0, 1, 2, 0}, p3.Crossover(rng, route.Tour{0, 1, 2, 0}, route.Tour{0, 2, 1, 0}))
}

func TestMutatePreservesPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p, err := route.NewProblem(randomPoints(rng, 10), 3)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		tour := p.Random(rng)
		p.Mutate(rng, tour, 1)
		require.NoError(t, route.ValidateTour(tour, 10, 3))
	}

	tour := p.Random(rng)
	before := append(route.Tour(nil), tour...)
	p.Mutate(rng, tour, 0)
	require.Equal(t, before, tour, "变异概率为 0 时不应该改变路线")
}

func TestEvaluate(t *testing.T) {
	p, err := route.NewProblem(unitSquare(), 0)
	require.NoError(t, err)

	tour := route.Tour{0, 1, 2, 3, 0}
	require.InDelta(t, 4.0, p.Distance(tour), 1e-12)

	fitness, valid := p.Evaluate(tour)
	require.True(t, valid)
	require.InDelta(t, 0.25, fitness, 1e-12)

	again, _ := p.Evaluate(tour)
	require.Equal(t, fitness, again, "同一条路线的适应度必须相同")

	crossed, _ := p.Evaluate(route.Tour{0, 2, 1, 3, 0})
	require.Less(t, crossed, fitness)
}

func TestEvaluateCoincidentPoints(t *testing.T) {
	p, err := route.NewProblem([]route.Point{{X: 2, Y: 3}, {X: 2, Y: 3}}, 0)
	require.NoError(t, err)

	fitness, valid := p.Evaluate(route.Tour{0, 1, 0})
	require.True(t, valid)
	require.False(t, math.IsInf(fitness, 0))
	require.False(t, math.IsNaN(fitness))
	require.Equal(t, route.MaxFitness, fitness)
}

func TestValidateTour(t *testing.T) {
	require.NoError(t, route.ValidateTour(route.Tour{2, 0, 1, 3, 2}, 4, 2))
	require.ErrorIs(t, route.ValidateTour(route.Tour{2, 0, 1, 2}, 4, 2), route.ErrTourLength)
	require.ErrorIs(t, route.ValidateTour(route.Tour{0, 2, 1, 3, 0}, 4, 2), route.ErrTourEndpoints)
	require.ErrorIs(t, route.ValidateTour(route.Tour{2, 0, 0, 3, 2}, 4, 2), route.ErrTourDuplicate)
	require.ErrorIs(t, route.ValidateTour(route.Tour{2, 0, 2, 3, 2}, 4, 2), route.ErrTourDuplicate)
}

// checkedProblem 在每次计算适应度时顺便检查路线的结构
type checkedProblem struct {
	*route.Problem
	violations *atomic.Int64
}

func (c checkedProblem) Evaluate(tour route.Tour) (float64, bool) {
	if route.ValidateTour(tour, len(c.Points), c.Anchor) != nil {
		c.violations.Add(1)
	}
	return c.Problem.Evaluate(tour)
}

func TestEngineKeepsToursValid(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	p, err := route.NewProblem(randomPoints(rng, 15), 7)
	require.NoError(t, err)

	checked := checkedProblem{Problem: p, violations: &atomic.Int64{}}
	engine, err := evolution.New[route.Tour](evolution.Parameters{
		PopulationSize: 40,
		MaxGenerations: 60,
		MutationRate:   0.3,
		EliteCount:     2,
		TournamentSize: 3,
		Seed:           6,
		Workers:        4,
	}, checked)
	require.NoError(t, err)

	best, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, checked.violations.Load())
	require.NoError(t, route.ValidateTour(best.Genome, 15, 7))
}

func TestEngineSolvesUnitSquare(t *testing.T) {
	p, err := route.NewProblem(unitSquare(), 0)
	require.NoError(t, err)

	engine, err := evolution.New[route.Tour](evolution.Parameters{
		PopulationSize: 20,
		MaxGenerations: 200,
		MutationRate:   0.05,
		EliteCount:     2,
		TournamentSize: 3,
		Seed:           2024,
	}, p)
	require.NoError(t, err)

	best, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, 4.0, p.Distance(best.Genome), 1e-9)
	require.InDelta(t, 0.25, best.Fitness, 1e-9)
}

func TestEngineZeroPopulationReturnsAnchorOnlyTour(t *testing.T) {
	p, err := route.NewProblem(unitSquare(), 2)
	require.NoError(t, err)

	engine, err := evolution.New[route.Tour](evolution.Parameters{TournamentSize: 1}, p)
	require.NoError(t, err)

	best, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, route.Tour{2, 2}, best.Genome)
	require.Zero(t, best.Fitness)
}
