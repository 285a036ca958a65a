package evolution

import (
	"math"
	"math/rand"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"
)

// Tournament 使用锦标赛选择一个父本
//
// 有放回地随机抽取 k 个个体，返回其中最优的一个。同一个个体可能被多次抽中。
// 种群为空时返回零值个体。
func Tournament[G any](rng *rand.Rand, pop []Individual[G], k int, dir Direction) Individual[G] {
	if len(pop) == 0 {
		return Individual[G]{}
	}

	best := pop[rng.Intn(len(pop))]
	for i := 1; i < k; i++ {
		candidate := pop[rng.Intn(len(pop))]
		if dir.Better(candidate.Fitness, best.Fitness) {
			best = candidate
		}
	}

	return best
}

// Sort 按照优化方向将种群从优到劣排序（稳定排序）
func Sort[G any](pop []Individual[G], dir Direction) {
	sort.SliceStable(pop, func(i, j int) bool {
		return dir.Better(pop[i].Fitness, pop[j].Fitness)
	})
}

// randomPopulation 随机初始化种群，此时还没有计算适应度
func (e *Engine[G]) randomPopulation(rng *rand.Rand) []Individual[G] {
	pop := make([]Individual[G], e.parameters.PopulationSize)
	for i := range pop {
		pop[i].Genome = e.problem.Random(rng)
	}
	return pop
}

// breed 通过选择、交叉和变异生成 n 个子代
// 所有随机数都在当前协程中消耗，保证同一个种子下的结果与并发度无关
func (e *Engine[G]) breed(rng *rand.Rand, pop []Individual[G], n int) []Individual[G] {
	offspring := make([]Individual[G], n)
	for i := range offspring {
		p1 := Tournament(rng, pop, e.parameters.TournamentSize, e.direction)
		p2 := Tournament(rng, pop, e.parameters.TournamentSize, e.direction)

		child := e.problem.Crossover(rng, p1.Genome, p2.Genome)
		e.problem.Mutate(rng, child, e.parameters.MutationRate)

		offspring[i].Genome = child
	}
	return offspring
}

// evaluate 计算每个个体的适应度
func (e *Engine[G]) evaluate(inds []Individual[G]) {
	if e.parameters.Workers <= 1 {
		for i := range inds {
			inds[i].Fitness, inds[i].Valid = e.problem.Evaluate(inds[i].Genome)
		}
		return
	}

	// 每个协程只写自己下标的元素，因此不需要加锁
	p := pool.New().WithMaxGoroutines(e.parameters.Workers)
	for i := range inds {
		i := i
		p.Go(func() {
			inds[i].Fitness, inds[i].Valid = e.problem.Evaluate(inds[i].Genome)
		})
	}
	p.Wait()
}

// snapshot 生成已排序种群的快照
func (e *Engine[G]) snapshot(gen int, pop []Individual[G]) Snapshot[G] {
	s := Snapshot[G]{
		Generation:     gen,
		PopulationSize: len(pop),
	}
	if len(pop) == 0 {
		return s
	}
	s.Best = pop[0]

	// 不可行解的适应度为 +Inf，不参与统计
	finite := make([]float64, 0, len(pop))
	for _, ind := range pop {
		if ind.Valid {
			s.ValidCount++
		}
		if isFinite(ind.Fitness) {
			finite = append(finite, ind.Fitness)
		}
	}

	switch len(finite) {
	case 0:
	case 1:
		s.MeanFitness = finite[0]
	default:
		s.MeanFitness, s.StdDevFitness = meanStdDev(finite)
	}

	return s
}

// meanStdDev 计算均值和标准差，结果总是有限值
//
// 适应度接近 math.MaxFloat64 时（例如所有路线长度都为 0）直接求和会溢出，
// 此时改为逐个累加，标准差仍然溢出时取 math.MaxFloat64。
func meanStdDev(xs []float64) (float64, float64) {
	mean, std := stat.MeanStdDev(xs, nil)
	if isFinite(mean) && isFinite(std) {
		return mean, std
	}

	mean = 0
	m2 := 0.0
	for i, x := range xs {
		n := float64(i + 1)
		prev := mean
		// 分开相除，每一项都不超过 x/n，不会溢出
		mean += x/n - prev/n
		m2 += (x - prev) * (x - mean)
	}

	std = math.Sqrt(m2 / float64(len(xs)-1))
	if !isFinite(std) {
		std = math.MaxFloat64
	}
	return mean, std
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
