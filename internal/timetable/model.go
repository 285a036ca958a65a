// Package timetable 实现了离散赋值型染色体，用于在冲突约束下为考试科目分配时段。
package timetable

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/evolution"
)

var (
	ErrNoItems          = errors.New("timetable: 至少需要一个科目")
	ErrInvalidDuration  = errors.New("timetable: 科目时长必须为正数")
	ErrUnknownItem      = errors.New("timetable: 选课记录引用了不存在的科目")
	ErrAssignmentLength = errors.New("timetable: 赋值长度与科目数量不一致")
	ErrNegativeSlot     = errors.New("timetable: 时段编号不能为负数")
)

// Infeasible 是违反冲突约束的赋值所使用的适应度
var Infeasible = math.Inf(1)

// Assignment: 第 i 个元素表示第 i 个科目被安排到的时段编号
type Assignment []int

// Conflict: 不能被安排在同一时段的一对科目，满足 Conflict[0] < Conflict[1]
type Conflict [2]int

type Problem struct {
	Durations []float64
	Conflicts []Conflict
}

var _ evolution.Problem[Assignment] = (*Problem)(nil)

// NewProblem 根据每个学生的选课记录构建冲突模型：同一个学生选的任意两门科目都不能在同一时段
func NewProblem(durations []float64, enrollments [][]int) (*Problem, error) {
	if len(durations) == 0 {
		return nil, ErrNoItems
	}
	for i, d := range durations {
		if !(d > 0) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: 科目 %d 的时长为 %v", ErrInvalidDuration, i, d)
		}
	}

	set := make(map[Conflict]struct{})
	for student, items := range enrollments {
		for _, item := range items {
			if item < 0 || item >= len(durations) {
				return nil, fmt.Errorf("%w: 学生 %d 选了科目 %d", ErrUnknownItem, student, item)
			}
		}
		for a := 0; a < len(items); a++ {
			for b := a + 1; b < len(items); b++ {
				i, j := items[a], items[b]
				if i == j {
					continue
				}
				if i > j {
					i, j = j, i
				}
				set[Conflict{i, j}] = struct{}{}
			}
		}
	}

	conflicts := make([]Conflict, 0, len(set))
	for c := range set {
		conflicts = append(conflicts, c)
	}
	// map 的遍历顺序是随机的，排序后保证冲突模型是确定的
	sort.Slice(conflicts, func(a, b int) bool {
		if conflicts[a][0] != conflicts[b][0] {
			return conflicts[a][0] < conflicts[b][0]
		}
		return conflicts[a][1] < conflicts[b][1]
	})

	return &Problem{
		Durations: durations,
		Conflicts: conflicts,
	}, nil
}

func (p *Problem) Direction() evolution.Direction {
	return evolution.Minimize
}

// Trivial 返回空赋值，对应的总时长为 0
func (p *Problem) Trivial() Assignment {
	return Assignment{}
}
