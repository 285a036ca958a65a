package route

import (
	"fmt"
	"math"
	"math/rand"
)

// Random 随机生成一条路线，中间部分使用 Fisher-Yates 洗牌
func (p *Problem) Random(rng *rand.Rand) Tour {
	cities := p.interior()
	for i := len(cities) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cities[i], cities[j] = cities[j], cities[i]
	}

	tour := make(Tour, 0, len(cities)+2)
	tour = append(tour, p.Anchor)
	tour = append(tour, cities...)
	tour = append(tour, p.Anchor)
	return tour
}

// Distance 计算路线的欧氏距离总和（包括回到锚点的最后一段）
func (p *Problem) Distance(tour Tour) float64 {
	total := 0.0
	for i := 1; i < len(tour); i++ {
		a := p.Points[tour[i-1]]
		b := p.Points[tour[i]]
		total += math.Hypot(a.X-b.X, a.Y-b.Y)
	}
	return total
}

// Evaluate 计算路线的适应度
// fitness = 1 / distance，路线越短适应度越高；距离为 0 时返回哨兵值 MaxFitness
func (p *Problem) Evaluate(tour Tour) (float64, bool) {
	distance := p.Distance(tour)
	if distance == 0 {
		return MaxFitness, true
	}
	return 1 / distance, true
}

// Crossover 顺序交叉（OX）
//
// 随机选择中间部分的两个切点 start < end，子代在 [start, end] 上照抄父本 1，
// 其余位置从下标 1 开始按父本 2 中的顺序依次填入尚未出现的城市。首尾锚点保持不变。
func (p *Problem) Crossover(rng *rand.Rand, p1 Tour, p2 Tour) Tour {
	child := make(Tour, len(p1))
	copy(child, p1)

	n := len(p1) - 2 // 中间部分的长度
	if n < 2 {
		return child
	}

	// start 取 [1, n-1]，end 取 (start, n]
	start := rng.Intn(n-1) + 1
	end := start + 1 + rng.Intn(n-start)

	placed := make(map[int]bool, end-start+1)
	for i := start; i <= end; i++ {
		placed[p1[i]] = true
	}

	pos := 1
	for _, city := range p2[1 : n+1] {
		if placed[city] {
			continue
		}
		if pos == start {
			pos = end + 1
		}
		child[pos] = city
		pos++
	}

	return child
}

// Mutate 以 rate 的概率对整条路线进行一次变异
// 一半概率交换两个城市，一半概率翻转一段子路线
func (p *Problem) Mutate(rng *rand.Rand, tour Tour, rate float64) {
	n := len(tour) - 2
	if n < 2 || rng.Float64() >= rate {
		return
	}

	i := rng.Intn(n) + 1
	j := rng.Intn(n-1) + 1
	if j >= i {
		j++
	}
	if i > j {
		i, j = j, i
	}

	if rng.Intn(2) == 0 {
		// 交换变异
		tour[i], tour[j] = tour[j], tour[i]
		return
	}

	// 翻转变异
	for i < j {
		tour[i], tour[j] = tour[j], tour[i]
		i++
		j--
	}
}

// ValidateTour 检查路线是否满足结构约束：长度为 n+1（n 为城市总数），首尾是锚点，其余城市恰好出现一次
func ValidateTour(tour Tour, n int, anchor int) error {
	if len(tour) != n+1 {
		return fmt.Errorf("%w: 期望 %d，实际 %d", ErrTourLength, n+1, len(tour))
	}
	if tour[0] != anchor || tour[len(tour)-1] != anchor {
		return ErrTourEndpoints
	}

	seen := make([]bool, n)
	for _, city := range tour[1 : len(tour)-1] {
		if city < 0 || city >= n || city == anchor || seen[city] {
			return fmt.Errorf("%w: 城市 %d", ErrTourDuplicate, city)
		}
		seen[city] = true
	}

	return nil
}
