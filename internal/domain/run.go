package domain

import "time"

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

type RunParameters struct {
	PopulationSize int     `json:"populationSize"`
	MaxGenerations int     `json:"maxGenerations"`
	MutationRate   float64 `json:"mutationRate"`
	EliteCount     int     `json:"eliteCount"`
	TournamentSize int     `json:"tournamentSize"`
	Seed           int64   `json:"seed"`
}

// RunSample: 某一代的进度采样
type RunSample struct {
	Generation  int      `json:"generation"`
	BestFitness *float64 `json:"bestFitness"` // 最优个体不可行时为 nil
	MeanFitness float64  `json:"meanFitness"`
	ValidCount  int      `json:"validCount"`
}

// RunOutcome: 一次求解的最终结果
type RunOutcome struct {
	BestFitness *float64    `json:"bestFitness"` // 最优个体不可行时为 nil
	Objective   float64     `json:"objective"`   // 路线总长度或排考总时长
	Valid       bool        `json:"valid"`
	BestGenome  []int       `json:"bestGenome"`
	SlotCount   int         `json:"slotCount,omitempty"`
	Samples     []RunSample `json:"samples"`
}

type Run struct {
	ID           int64         `json:"id"`
	ProblemID    int64         `json:"problemID"`
	Kind         ProblemKind   `json:"kind"`
	Parameters   RunParameters `json:"parameters"`
	Status       RunStatus     `json:"status"`
	Outcome      *RunOutcome   `json:"outcome"`
	ErrorMessage string        `json:"errorMessage"`
	RequestedBy  int64         `json:"requestedBy"`
	CreatedAt    time.Time     `json:"createdAt"`
	FinishedAt   *time.Time    `json:"finishedAt"`
	Version      int32         `json:"-"`
}

// OptimizationJob: 投递到任务队列中的消息
type OptimizationJob struct {
	RunID int64 `json:"runID"`
}
