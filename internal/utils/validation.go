package utils

import (
	"errors"
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

func ValidateRoutingProblem(rp *domain.RoutingProblem) error {
	if len(rp.Cities) == 0 {
		return errors.New("至少需要一个城市")
	}

	if rp.AnchorIndex < 0 || rp.AnchorIndex >= len(rp.Cities) {
		return fmt.Errorf("起点下标 %d 超出了城市数量", rp.AnchorIndex)
	}

	for i, city := range rp.Cities {
		if math.IsNaN(city.X) || math.IsInf(city.X, 0) || math.IsNaN(city.Y) || math.IsInf(city.Y, 0) {
			return fmt.Errorf("第 %d 个城市的坐标不合法", i+1)
		}
	}

	return nil
}

func ValidateTimetableProblem(tp *domain.TimetableProblem) error {
	if len(tp.Subjects) == 0 {
		return errors.New("至少需要一门科目")
	}

	codes := make(map[string]bool)
	for i, subject := range tp.Subjects {
		if !(subject.Duration > 0) || math.IsInf(subject.Duration, 0) {
			return fmt.Errorf("第 %d 门科目的时长必须为正数", i+1)
		}
		if codes[subject.Code] {
			return fmt.Errorf("科目代码 %s 重复", subject.Code)
		}
		codes[subject.Code] = true
	}

	for i, student := range tp.Students {
		// 检查学生是否选了不存在的科目或者重复选了同一门科目
		seen := make(map[int]bool)
		for _, index := range student.SubjectIndexes {
			if index < 0 || index >= len(tp.Subjects) {
				return fmt.Errorf("第 %d 个学生选了不存在的科目 %d", i+1, index)
			}
			if seen[index] {
				return fmt.Errorf("第 %d 个学生重复选了科目 %d", i+1, index)
			}
			seen[index] = true
		}
	}

	return nil
}

func ValidateRunParameters(params *domain.RunParameters) error {
	if params.PopulationSize > 0 && params.EliteCount >= params.PopulationSize {
		return errors.New("精英数量必须小于种群大小")
	}

	if params.TournamentSize < 1 {
		return errors.New("锦标赛规模至少为 1")
	}

	if params.MutationRate < 0 || params.MutationRate > 1 {
		return errors.New("变异概率必须在 0 到 1 之间")
	}

	return nil
}
