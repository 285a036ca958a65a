package domain

import "time"

type ProblemKind string

const (
	ProblemKindRouting   ProblemKind = "routing"   // 城市巡游
	ProblemKindTimetable ProblemKind = "timetable" // 排考
)

type ProblemMeta struct {
	ID          int64       `json:"id"`
	Kind        ProblemKind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatedBy   int64       `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	Version     int32       `json:"-"`
}

type City struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type RoutingProblem struct {
	ProblemMeta
	AnchorIndex int    `json:"anchorIndex"` // 起点（同时也是终点）在 Cities 中的下标
	Cities      []City `json:"cities"`
}

type Subject struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"` // 考试时长（小时）
}

type Student struct {
	Name           string `json:"name"`
	SubjectIndexes []int  `json:"subjectIndexes"` // 所选科目在 Subjects 中的下标
}

type TimetableProblem struct {
	ProblemMeta
	Subjects []Subject `json:"subjects"`
	Students []Student `json:"students"`
}
