package utils

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

func TestGenerateSubjectCode(t *testing.T) {
	code := GenerateSubjectCode("高等数学")
	assert.Regexp(t, regexp.MustCompile(`^GDSX[0-9]{3}$`), code)
}

func TestGenerateRandomSubset(t *testing.T) {
	arr := []int{0, 1, 2, 3, 4, 5}
	for i := 0; i < 100; i++ {
		subset := GenerateRandomSubset(arr, 3)
		require.NotEmpty(t, subset)
		require.LessOrEqual(t, len(subset), 3)

		seen := make(map[int]bool)
		for _, v := range subset {
			assert.False(t, seen[v], "重复的元素 %d", v)
			seen[v] = true
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, arr, "原数组不应被修改")
}

func TestGeneratedProblemsAreValid(t *testing.T) {
	rp := GenerateRandomRoutingProblem(30, 100)
	require.Len(t, rp.Cities, 30)
	assert.NoError(t, ValidateRoutingProblem(rp))

	tp := GenerateRandomTimetableProblem(20, 50, 4)
	require.Len(t, tp.Subjects, 20)
	require.Len(t, tp.Students, 50)
	assert.NoError(t, ValidateTimetableProblem(tp))
}

func TestValidateRoutingProblem(t *testing.T) {
	tests := []struct {
		name    string
		problem domain.RoutingProblem
		wantErr bool
	}{
		{"无城市", domain.RoutingProblem{}, true},
		{"起点越界", domain.RoutingProblem{AnchorIndex: 1, Cities: []domain.City{{X: 0, Y: 0}}}, true},
		{"坐标为 NaN", domain.RoutingProblem{Cities: []domain.City{{X: math.NaN(), Y: 0}}}, true},
		{"单个城市", domain.RoutingProblem{Cities: []domain.City{{X: 1, Y: 1}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoutingProblem(&tt.problem)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTimetableProblem(t *testing.T) {
	subjects := []domain.Subject{{Code: "A", Duration: 1}, {Code: "B", Duration: 2}}

	tests := []struct {
		name    string
		problem domain.TimetableProblem
		wantErr bool
	}{
		{"无科目", domain.TimetableProblem{}, true},
		{"时长为零", domain.TimetableProblem{Subjects: []domain.Subject{{Code: "A"}}}, true},
		{"代码重复", domain.TimetableProblem{Subjects: []domain.Subject{{Code: "A", Duration: 1}, {Code: "A", Duration: 1}}}, true},
		{"科目越界", domain.TimetableProblem{Subjects: subjects, Students: []domain.Student{{SubjectIndexes: []int{2}}}}, true},
		{"重复选课", domain.TimetableProblem{Subjects: subjects, Students: []domain.Student{{SubjectIndexes: []int{1, 1}}}}, true},
		{"合法", domain.TimetableProblem{Subjects: subjects, Students: []domain.Student{{SubjectIndexes: []int{0, 1}}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimetableProblem(&tt.problem)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRunParameters(t *testing.T) {
	ok := domain.RunParameters{PopulationSize: 10, MaxGenerations: 5, MutationRate: 0.1, EliteCount: 2, TournamentSize: 3}
	assert.NoError(t, ValidateRunParameters(&ok))

	zeroPop := ok
	zeroPop.PopulationSize = 0
	assert.NoError(t, ValidateRunParameters(&zeroPop))

	tooManyElites := ok
	tooManyElites.EliteCount = 10
	assert.Error(t, ValidateRunParameters(&tooManyElites))

	badRate := ok
	badRate.MutationRate = 1.5
	assert.Error(t, ValidateRunParameters(&badRate))

	badTournament := ok
	badTournament.TournamentSize = 0
	assert.Error(t, ValidateRunParameters(&badTournament))
}
