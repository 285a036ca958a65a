package optimizer

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/config"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/monitor"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/route"
)

type memoryStore struct {
	mu     sync.Mutex
	latest map[int64]domain.RunSample
	saves  int
}

func (s *memoryStore) Save(_ context.Context, runID int64, sample domain.RunSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		s.latest = make(map[int64]domain.RunSample)
	}
	s.latest[runID] = sample
	s.saves++
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Evolution.Workers = 2
	cfg.Evolution.SampleInterval = 10
	cfg.Evolution.ProgressBuffer = 64
	cfg.Evolution.MaxPopulationSize = 100
	cfg.Evolution.MaxGenerations = 500
	cfg.Evolution.RunTimeout = 60
	cfg.Redis.OperationExpiration = 1
	return cfg
}

func unitSquare() *domain.RoutingProblem {
	return &domain.RoutingProblem{
		ProblemMeta: domain.ProblemMeta{Kind: domain.ProblemKindRouting, Name: "正方形"},
		AnchorIndex: 0,
		Cities: []domain.City{
			{Name: "A", X: 0, Y: 0},
			{Name: "B", X: 1, Y: 0},
			{Name: "C", X: 1, Y: 1},
			{Name: "D", X: 0, Y: 1},
		},
	}
}

func TestToParametersAppliesCaps(t *testing.T) {
	cfg := testConfig()
	params := ToParameters(domain.RunParameters{
		PopulationSize: 5000,
		MaxGenerations: 10,
		MutationRate:   0.2,
		EliteCount:     1,
		TournamentSize: 2,
		Seed:           7,
	}, cfg)

	assert.Equal(t, 100, params.PopulationSize)
	assert.Equal(t, 10, params.MaxGenerations)
	assert.Equal(t, 0.2, params.MutationRate)
	assert.Equal(t, int64(7), params.Seed)
	assert.Equal(t, 2, params.Workers)
	assert.Equal(t, 10, params.SampleInterval)
}

func TestRunRouting(t *testing.T) {
	store := &memoryStore{}
	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)
	runner := NewRunner(testConfig(), store, metrics)

	run := &domain.Run{
		ID:   1,
		Kind: domain.ProblemKindRouting,
		Parameters: domain.RunParameters{
			PopulationSize: 20,
			MaxGenerations: 200,
			MutationRate:   0.05,
			EliteCount:     2,
			TournamentSize: 3,
			Seed:           2024,
		},
	}

	outcome, err := runner.RunRouting(context.Background(), run, unitSquare())
	require.NoError(t, err)

	assert.True(t, outcome.Valid)
	assert.InDelta(t, 4.0, outcome.Objective, 1e-9)
	require.NotNil(t, outcome.BestFitness)
	assert.InDelta(t, 0.25, *outcome.BestFitness, 1e-9)
	assert.Len(t, outcome.BestGenome, 5)
	assert.Equal(t, 0, outcome.BestGenome[0])
	assert.Equal(t, 0, outcome.BestGenome[4])

	// 第 0 代到第 200 代每隔 10 代一次采样
	require.Len(t, outcome.Samples, 21)
	assert.Equal(t, 0, outcome.Samples[0].Generation)
	assert.Equal(t, 200, outcome.Samples[20].Generation)

	assert.Equal(t, 21, store.saves)
	assert.Equal(t, 200, store.latest[1].Generation)
	assert.Equal(t, 21.0, testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues("routing")))
}

func TestRunRoutingZeroPopulation(t *testing.T) {
	runner := NewRunner(testConfig(), nil, nil)
	run := &domain.Run{ID: 2, Kind: domain.ProblemKindRouting, Parameters: domain.RunParameters{TournamentSize: 1}}

	rp := unitSquare()
	rp.AnchorIndex = 2
	outcome, err := runner.RunRouting(context.Background(), run, rp)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2}, outcome.BestGenome)
	assert.Nil(t, outcome.BestFitness)
	assert.False(t, outcome.Valid)
	assert.Zero(t, outcome.Objective)
	assert.Empty(t, outcome.Samples)
}

func TestRunRoutingRejectsBadParameters(t *testing.T) {
	runner := NewRunner(testConfig(), nil, nil)
	run := &domain.Run{ID: 3, Parameters: domain.RunParameters{PopulationSize: 5, EliteCount: 5, TournamentSize: 1}}

	_, err := runner.RunRouting(context.Background(), run, unitSquare())
	assert.Error(t, err)
}

func TestRunRoutingCancelled(t *testing.T) {
	runner := NewRunner(testConfig(), nil, nil)
	run := &domain.Run{ID: 4, Parameters: domain.RunParameters{PopulationSize: 10, MaxGenerations: 100, TournamentSize: 2}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.RunRouting(ctx, run, unitSquare())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTimetable(t *testing.T) {
	runner := NewRunner(testConfig(), &memoryStore{}, nil)
	run := &domain.Run{
		ID:   5,
		Kind: domain.ProblemKindTimetable,
		Parameters: domain.RunParameters{
			PopulationSize: 30,
			MaxGenerations: 100,
			MutationRate:   0.1,
			EliteCount:     2,
			TournamentSize: 3,
			Seed:           9,
		},
	}

	tp := &domain.TimetableProblem{
		Subjects: []domain.Subject{
			{Code: "A", Duration: 2},
			{Code: "B", Duration: 1},
			{Code: "C", Duration: 3},
		},
		Students: []domain.Student{
			{Name: "甲", SubjectIndexes: []int{0, 1, 2}},
			{Name: "乙", SubjectIndexes: []int{0, 1, 2}},
		},
	}

	outcome, err := runner.RunTimetable(context.Background(), run, tp)
	require.NoError(t, err)

	assert.True(t, outcome.Valid)
	assert.Equal(t, 3, outcome.SlotCount)
	assert.Equal(t, 6.0, outcome.Objective)
	require.NotNil(t, outcome.BestFitness)
	assert.Equal(t, 6.0, *outcome.BestFitness)
	assert.Len(t, outcome.BestGenome, 3)
	assert.Len(t, outcome.Samples, 11)
}

func TestRunTimetableRejectsUnknownSubject(t *testing.T) {
	runner := NewRunner(testConfig(), nil, nil)
	run := &domain.Run{ID: 6, Parameters: domain.RunParameters{PopulationSize: 4, MaxGenerations: 1, TournamentSize: 1}}

	tp := &domain.TimetableProblem{
		Subjects: []domain.Subject{{Code: "A", Duration: 1}},
		Students: []domain.Student{{SubjectIndexes: []int{0, 3}}},
	}

	_, err := runner.RunTimetable(context.Background(), run, tp)
	assert.Error(t, err)
}

func TestRunRoutingDegenerateGeometryIsStorable(t *testing.T) {
	tests := []struct {
		name   string
		cities []domain.City
	}{
		{"只有一个城市", []domain.City{{Name: "A"}}},
		{"所有城市重合", []domain.City{{Name: "A", X: 2, Y: 2}, {Name: "B", X: 2, Y: 2}, {Name: "C", X: 2, Y: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			runner := NewRunner(testConfig(), store, nil)
			rp := &domain.RoutingProblem{ProblemMeta: domain.ProblemMeta{Kind: domain.ProblemKindRouting}, Cities: tt.cities}
			run := &domain.Run{
				ID:         9,
				Kind:       domain.ProblemKindRouting,
				Parameters: domain.RunParameters{PopulationSize: 10, MaxGenerations: 3, MutationRate: 0.1, EliteCount: 1, TournamentSize: 2, Seed: 1},
			}

			outcome, err := runner.RunRouting(context.Background(), run, rp)
			require.NoError(t, err)
			assert.Zero(t, outcome.Objective)
			require.NotNil(t, outcome.BestFitness)
			assert.Equal(t, route.MaxFitness, *outcome.BestFitness)

			require.NotEmpty(t, outcome.Samples)
			for _, sample := range outcome.Samples {
				assert.False(t, math.IsInf(sample.MeanFitness, 0) || math.IsNaN(sample.MeanFitness))
			}

			// 结果和进度都要能序列化后写入数据库和 redis
			_, err = json.Marshal(outcome)
			require.NoError(t, err)
			assert.Equal(t, len(outcome.Samples), store.saves)
		})
	}
}
