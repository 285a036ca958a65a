package evolution

import (
	"context"
	"math/rand"
)

// defaultSeed 是 Seed 为 0 时使用的种子，保证默认情况下的结果可复现
const defaultSeed int64 = 1

type Engine[G any] struct {
	parameters Parameters
	problem    Problem[G]
	direction  Direction
}

func New[G any](parameters Parameters, problem Problem[G]) (*Engine[G], error) {
	if problem == nil {
		return nil, ErrNilProblem
	}
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	return &Engine[G]{
		parameters: parameters,
		problem:    problem,
		direction:  problem.Direction(),
	}, nil
}

func (e *Engine[G]) Parameters() Parameters {
	return e.parameters
}

func (e *Engine[G]) Direction() Direction {
	return e.direction
}

// Run 执行遗传算法并返回最后一代中的最优个体
//
// progress 可以为 nil。非 nil 时，引擎会按照 SampleInterval 非阻塞地发送进度快照（观察者来不及接收时直接丢弃），
// 并在 Run 返回前关闭它。ctx 只在每一代开始前检查一次，被取消时返回当前最优个体和 ctx.Err()。
func (e *Engine[G]) Run(ctx context.Context, progress chan<- Snapshot[G]) (Individual[G], error) {
	if progress != nil {
		defer close(progress)
	}

	// 种群为空时没有任何解，返回只包含锚点的平凡解
	if e.parameters.PopulationSize == 0 {
		return Individual[G]{Genome: e.problem.Trivial()}, nil
	}

	seed := e.parameters.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	rng := rand.New(rand.NewSource(seed))

	// 生成初始种群
	pop := e.randomPopulation(rng)
	e.evaluate(pop)
	Sort(pop, e.direction)
	e.report(progress, 0, pop)

	for gen := 1; gen <= e.parameters.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return pop[0], err
		}

		newPop := make([]Individual[G], 0, e.parameters.PopulationSize)

		// 保留精英，精英的适应度已知，无需重新计算
		newPop = append(newPop, pop[:e.parameters.EliteCount]...)

		// 剩余的位置由子代填充
		offspring := e.breed(rng, pop, e.parameters.PopulationSize-e.parameters.EliteCount)
		e.evaluate(offspring)
		newPop = append(newPop, offspring...)

		pop = newPop
		Sort(pop, e.direction)
		e.report(progress, gen, pop)
	}

	return pop[0], nil
}

func (e *Engine[G]) report(progress chan<- Snapshot[G], gen int, pop []Individual[G]) {
	if progress == nil {
		return
	}

	last := gen == e.parameters.MaxGenerations
	sampled := e.parameters.SampleInterval > 0 && gen%e.parameters.SampleInterval == 0
	if !last && !sampled {
		return
	}

	select {
	case progress <- e.snapshot(gen, pop):
	default:
	}
}
