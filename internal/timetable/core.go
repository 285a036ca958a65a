package timetable

import (
	"fmt"
	"math/rand"
	"slices"
)

// Random 为每个科目独立地随机选择 [0, 科目数量) 中的一个时段，不做任何可行性修复
func (p *Problem) Random(rng *rand.Rand) Assignment {
	a := make(Assignment, len(p.Durations))
	for i := range a {
		a[i] = rng.Intn(len(p.Durations))
	}
	return a
}

// Feasible 判断赋值是否满足所有冲突约束
func (p *Problem) Feasible(a Assignment) bool {
	for _, c := range p.Conflicts {
		if a[c[0]] == a[c[1]] {
			return false
		}
	}
	return true
}

// Duration 计算总时长：每个时段取其中最长的科目时长，再对所有时段求和
// 同一时段的考试在不同考场同时进行，因此只有最长的那一门决定该时段的长度
func (p *Problem) Duration(a Assignment) float64 {
	longest := make(map[int]float64)
	for item, slot := range a {
		if p.Durations[item] > longest[slot] {
			longest[slot] = p.Durations[item]
		}
	}

	// 按时段编号的顺序求和，保证同一个赋值的结果完全一致
	total := 0.0
	slots := make([]int, 0, len(longest))
	for slot := range longest {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	for _, slot := range slots {
		total += longest[slot]
	}
	return total
}

// Evaluate 计算赋值的适应度
// 违反冲突约束时返回 (+Inf, false)，否则返回总时长
func (p *Problem) Evaluate(a Assignment) (float64, bool) {
	if !p.Feasible(a) {
		return Infeasible, false
	}
	return p.Duration(a), true
}

// Crossover 单点交叉：切点之前取父本 1 的时段，切点及之后取父本 2 的时段
func (p *Problem) Crossover(rng *rand.Rand, p1 Assignment, p2 Assignment) Assignment {
	child := make(Assignment, len(p1))
	if len(p1) == 0 {
		return child
	}

	point := rng.Intn(len(p1))
	copy(child[:point], p1[:point])
	copy(child[point:], p2[point:])
	return child
}

// Mutate 每个科目独立地以 rate 的概率被重新分配到 [0, maxSlot+1] 中的随机时段
//
// maxSlot 是当前赋值中出现过的最大时段编号，+1 使搜索可以发现新的时段。
// 这意味着时段编号可以随着迭代无限增长。
func (p *Problem) Mutate(rng *rand.Rand, a Assignment, rate float64) {
	for i := range a {
		if rng.Float64() >= rate {
			continue
		}

		maxSlot := 0
		for _, slot := range a {
			maxSlot = max(maxSlot, slot)
		}
		a[i] = rng.Intn(maxSlot + 2)
	}
}

// SlotCount 返回赋值中实际用到的时段数量
func SlotCount(a Assignment) int {
	used := make(map[int]struct{}, len(a))
	for _, slot := range a {
		used[slot] = struct{}{}
	}
	return len(used)
}

// ValidateAssignment 检查每个科目是否恰好被分配了一个合法的时段
func ValidateAssignment(a Assignment, itemCount int) error {
	if len(a) != itemCount {
		return fmt.Errorf("%w: 期望 %d，实际 %d", ErrAssignmentLength, itemCount, len(a))
	}
	for item, slot := range a {
		if slot < 0 {
			return fmt.Errorf("%w: 科目 %d", ErrNegativeSlot, item)
		}
	}
	return nil
}
