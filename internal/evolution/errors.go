package evolution

import (
	"errors"
	"fmt"
)

var (
	ErrNilProblem            = errors.New("evolution: problem 不能为空")
	ErrInvalidPopulationSize = errors.New("evolution: 种群大小不合法")
	ErrInvalidEliteCount     = errors.New("evolution: 精英数量不合法")
	ErrInvalidTournamentSize = errors.New("evolution: 锦标赛规模不合法")
	ErrInvalidMutationRate   = errors.New("evolution: 变异概率不合法")
	ErrInvalidGenerations    = errors.New("evolution: 迭代次数不合法")
)

// Validate 检查参数是否合法，只在构造引擎时调用一次
func (p Parameters) Validate() error {
	if p.PopulationSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPopulationSize, p.PopulationSize)
	}
	if p.EliteCount < 0 || (p.PopulationSize > 0 && p.EliteCount >= p.PopulationSize) {
		return fmt.Errorf("%w: 精英数量 %d，种群大小 %d", ErrInvalidEliteCount, p.EliteCount, p.PopulationSize)
	}
	if p.TournamentSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTournamentSize, p.TournamentSize)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidMutationRate, p.MutationRate)
	}
	if p.MaxGenerations < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGenerations, p.MaxGenerations)
	}
	return nil
}
