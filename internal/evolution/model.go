package evolution

import "math/rand"

// Direction 表示适应度的优化方向
type Direction int

const (
	Minimize Direction = iota // 适应度越小越好（例如排考总时长）
	Maximize                  // 适应度越大越好（例如路线长度的倒数）
)

// Better 判断在当前方向下 a 是否严格优于 b
func (d Direction) Better(a, b float64) bool {
	if d == Maximize {
		return a > b
	}
	return a < b
}

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Problem: 具体问题需要向引擎提供的能力集合
//
// 引擎只负责种群的选择、精英保留和世代更替，染色体的结构、交叉、变异以及适应度的计算都由 Problem 决定。
// Evaluate 必须是纯函数，引擎会在多个协程中并发调用它。
type Problem[G any] interface {
	Direction() Direction
	Random(rng *rand.Rand) G
	Crossover(rng *rand.Rand, p1 G, p2 G) G
	Mutate(rng *rand.Rand, g G, rate float64)
	Evaluate(g G) (fitness float64, valid bool)
	Trivial() G
}

// Individual: 染色体及其缓存的适应度
type Individual[G any] struct {
	Genome  G
	Fitness float64
	Valid   bool
}

// 遗传算法参数
type Parameters struct {
	PopulationSize int     // 种群大小
	MaxGenerations int     // 最大迭代次数
	MutationRate   float64 // 变异概率
	EliteCount     int     // 精英数量
	TournamentSize int     // 锦标赛规模
	Seed           int64   // 随机种子，为 0 时使用默认种子
	Workers        int     // 并发评估适应度的协程数，小于等于 1 时顺序评估
	SampleInterval int     // 每隔多少代输出一次进度快照，为 0 时只输出最后一代
}

// Snapshot: 某一代结束后的进度快照
type Snapshot[G any] struct {
	Generation     int
	Best           Individual[G]
	PopulationSize int
	ValidCount     int
	MeanFitness    float64 // 只统计有限的适应度
	StdDevFitness  float64
}
