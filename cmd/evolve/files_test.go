package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/optimizer"
)

func TestLoadRoutingProblem(t *testing.T) {
	problem, err := loadProblem("testdata/square.toml")
	require.NoError(t, err)

	rp, ok := problem.(*domain.RoutingProblem)
	require.True(t, ok)
	assert.Equal(t, "unit square", rp.Name)
	assert.Len(t, rp.Cities, 4)
	assert.Equal(t, domain.City{Name: "C", X: 1, Y: 1}, rp.Cities[2])
}

func TestLoadTimetableProblem(t *testing.T) {
	problem, err := loadProblem("testdata/exams.toml")
	require.NoError(t, err)

	tp, ok := problem.(*domain.TimetableProblem)
	require.True(t, ok)
	assert.Len(t, tp.Subjects, 3)
	assert.Equal(t, []int{1, 2}, tp.Students[1].SubjectIndexes)
}

func TestLoadProblemRejectsUnknownKeys(t *testing.T) {
	_, err := loadProblem("testdata/unknown.toml")
	assert.Error(t, err)

	_, err = loadProblem("testdata/missing.toml")
	assert.Error(t, err)
}

func TestLoadPreset(t *testing.T) {
	evolution, chart, err := loadPreset("testdata/fast.ini")
	require.NoError(t, err)

	assert.Equal(t, 20, evolution.PopulationSize)
	assert.Equal(t, int64(2024), evolution.Seed)
	assert.Equal(t, 20, evolution.SampleInterval)
	assert.Equal(t, 5.0, chart.Width)
	// 缺少的键保留默认值
	assert.Equal(t, 4.0, chart.Height)

	evolution, _, err = loadPreset("")
	require.NoError(t, err)
	assert.Equal(t, 50, evolution.PopulationSize)
}

func TestPresetSolvesSquare(t *testing.T) {
	problem, err := loadProblem("testdata/square.toml")
	require.NoError(t, err)
	preset, _, err := loadPreset("testdata/fast.ini")
	require.NoError(t, err)

	runner := optimizer.NewRunner(preset.Config(), nil, nil)
	outcome, err := runner.RunRouting(context.Background(), &domain.Run{Parameters: preset.RunParameters()}, problem.(*domain.RoutingProblem))
	require.NoError(t, err)

	assert.InDelta(t, 4.0, outcome.Objective, 1e-9)
	assert.Len(t, outcome.Samples, 11)
}
