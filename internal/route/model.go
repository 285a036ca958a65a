// Package route 实现了带固定起止点的排列型染色体，用于求解城市巡游顺序。
package route

import (
	"math"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/evolution"
)

// MaxFitness 是路线总长度为 0 时（所有点重合）使用的哨兵适应度
const MaxFitness = math.MaxFloat64

type Point struct {
	X float64
	Y float64
}

// Tour: 长度为 N+2 的城市下标序列，首尾都是锚点，中间是其余城市的一个排列
type Tour []int

// Problem: 以 Anchor 为起点和终点，访问 Points 中所有其他城市一次
type Problem struct {
	Points []Point
	Anchor int
}

var _ evolution.Problem[Tour] = (*Problem)(nil)

func NewProblem(points []Point, anchor int) (*Problem, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if anchor < 0 || anchor >= len(points) {
		return nil, ErrAnchorOutOfRange
	}

	return &Problem{
		Points: points,
		Anchor: anchor,
	}, nil
}

func (p *Problem) Direction() evolution.Direction {
	return evolution.Maximize
}

// Trivial 返回只包含锚点的平凡路线
func (p *Problem) Trivial() Tour {
	return Tour{p.Anchor, p.Anchor}
}

// interior 返回除锚点外的所有城市下标
func (p *Problem) interior() []int {
	cities := make([]int, 0, len(p.Points)-1)
	for i := range p.Points {
		if i != p.Anchor {
			cities = append(cities, i)
		}
	}
	return cities
}
