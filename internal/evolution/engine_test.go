package evolution_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/evolution"
)

// oneMax 是最简单的测试问题：最大化比特串中 1 的个数
type oneMax struct {
	length int
}

func (p oneMax) Direction() evolution.Direction { return evolution.Maximize }

func (p oneMax) Random(rng *rand.Rand) []bool {
	g := make([]bool, p.length)
	for i := range g {
		g[i] = rng.Intn(2) == 1
	}
	return g
}

func (p oneMax) Crossover(rng *rand.Rand, p1 []bool, p2 []bool) []bool {
	child := make([]bool, p.length)
	point := rng.Intn(p.length)
	copy(child[:point], p1[:point])
	copy(child[point:], p2[point:])
	return child
}

func (p oneMax) Mutate(rng *rand.Rand, g []bool, rate float64) {
	for i := range g {
		if rng.Float64() < rate {
			g[i] = !g[i]
		}
	}
}

func (p oneMax) Evaluate(g []bool) (float64, bool) {
	cnt := 0
	for _, bit := range g {
		if bit {
			cnt++
		}
	}
	return float64(cnt), true
}

func (p oneMax) Trivial() []bool { return nil }

func defaultParameters() evolution.Parameters {
	return evolution.Parameters{
		PopulationSize: 30,
		MaxGenerations: 40,
		MutationRate:   0.02,
		EliteCount:     2,
		TournamentSize: 3,
		Seed:           42,
		SampleInterval: 1,
	}
}

func TestNewRejectsMalformedParameters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *evolution.Parameters)
		want   error
	}{
		{"negative population", func(p *evolution.Parameters) { p.PopulationSize = -1 }, evolution.ErrInvalidPopulationSize},
		{"elite equals population", func(p *evolution.Parameters) { p.EliteCount = p.PopulationSize }, evolution.ErrInvalidEliteCount},
		{"negative elite", func(p *evolution.Parameters) { p.EliteCount = -1 }, evolution.ErrInvalidEliteCount},
		{"zero tournament", func(p *evolution.Parameters) { p.TournamentSize = 0 }, evolution.ErrInvalidTournamentSize},
		{"mutation above one", func(p *evolution.Parameters) { p.MutationRate = 1.5 }, evolution.ErrInvalidMutationRate},
		{"negative generations", func(p *evolution.Parameters) { p.MaxGenerations = -3 }, evolution.ErrInvalidGenerations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := defaultParameters()
			tt.modify(&params)

			_, err := evolution.New[[]bool](params, oneMax{length: 8})
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := evolution.New[[]bool](defaultParameters(), nil)
	require.ErrorIs(t, err, evolution.ErrNilProblem)
}

func TestRunZeroPopulationReturnsTrivial(t *testing.T) {
	params := defaultParameters()
	params.PopulationSize = 0
	params.EliteCount = 0

	engine, err := evolution.New[[]bool](params, oneMax{length: 8})
	require.NoError(t, err)

	progress := make(chan evolution.Snapshot[[]bool], 1)
	best, err := engine.Run(context.Background(), progress)
	require.NoError(t, err)
	require.Nil(t, best.Genome)
	require.Zero(t, best.Fitness)

	_, ok := <-progress
	require.False(t, ok, "进度通道应当被关闭")
}

func TestRunKeepsPopulationSizeAndNeverWorsens(t *testing.T) {
	params := defaultParameters()
	engine, err := evolution.New[[]bool](params, oneMax{length: 32})
	require.NoError(t, err)

	progress := make(chan evolution.Snapshot[[]bool], params.MaxGenerations+1)
	best, err := engine.Run(context.Background(), progress)
	require.NoError(t, err)

	var snapshots []evolution.Snapshot[[]bool]
	for s := range progress {
		snapshots = append(snapshots, s)
	}
	require.Len(t, snapshots, params.MaxGenerations+1)

	for i, s := range snapshots {
		require.Equal(t, i, s.Generation)
		require.Equal(t, params.PopulationSize, s.PopulationSize)
		require.Equal(t, params.PopulationSize, s.ValidCount)
		if i > 0 {
			require.GreaterOrEqual(t, s.Best.Fitness, snapshots[i-1].Best.Fitness, "第 %d 代的最优适应度变差了", i)
		}
		require.LessOrEqual(t, s.MeanFitness, s.Best.Fitness)
	}

	last := snapshots[len(snapshots)-1]
	require.Equal(t, last.Best.Fitness, best.Fitness)
	require.Greater(t, best.Fitness, snapshots[0].Best.Fitness)
}

func TestRunIsReproducibleAcrossWorkerCounts(t *testing.T) {
	params := defaultParameters()

	run := func(workers int) evolution.Individual[[]bool] {
		p := params
		p.Workers = workers
		engine, err := evolution.New[[]bool](p, oneMax{length: 24})
		require.NoError(t, err)
		best, err := engine.Run(context.Background(), nil)
		require.NoError(t, err)
		return best
	}

	sequential := run(1)
	require.Equal(t, sequential, run(1))
	require.Equal(t, sequential, run(4))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	engine, err := evolution.New[[]bool](defaultParameters(), oneMax{length: 16})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, err := engine.Run(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, best.Genome, 16, "取消时仍然应该返回初始种群中的最优个体")
}

func TestRunDropsSnapshotsForSlowObserver(t *testing.T) {
	engine, err := evolution.New[[]bool](defaultParameters(), oneMax{length: 16})
	require.NoError(t, err)

	// 缓冲区只有 1，且在 Run 结束前没有人接收
	progress := make(chan evolution.Snapshot[[]bool], 1)
	_, err = engine.Run(context.Background(), progress)
	require.NoError(t, err)

	cnt := 0
	for range progress {
		cnt++
	}
	require.Equal(t, 1, cnt)
}

func TestTournament(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	empty := evolution.Tournament[[]bool](rng, nil, 3, evolution.Maximize)
	assert.Nil(t, empty.Genome)

	pop := []evolution.Individual[int]{
		{Genome: 1, Fitness: 5},
		{Genome: 2, Fitness: 1},
		{Genome: 3, Fitness: 3},
	}
	before := append([]evolution.Individual[int](nil), pop...)

	for i := 0; i < 100; i++ {
		evolution.Tournament(rng, pop, 2, evolution.Minimize)
	}
	assert.Equal(t, before, pop, "选择不应该修改种群")

	// 规模足够大时几乎必然选中最优个体
	winner := evolution.Tournament(rng, pop, 64, evolution.Minimize)
	assert.Equal(t, 2, winner.Genome)
}

func TestSortPlacesInfeasibleLast(t *testing.T) {
	pop := []evolution.Individual[string]{
		{Genome: "infeasible", Fitness: math.Inf(1)},
		{Genome: "slow", Fitness: 9},
		{Genome: "fast", Fitness: 4, Valid: true},
	}

	evolution.Sort(pop, evolution.Minimize)
	require.Equal(t, "fast", pop[0].Genome)
	require.Equal(t, "infeasible", pop[2].Genome)

	evolution.Sort(pop, evolution.Maximize)
	require.Equal(t, "infeasible", pop[0].Genome)
}
