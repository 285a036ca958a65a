package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/config"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/utils"
	"gopkg.in/ini.v1"
)

// problemFile 是问题文件的 TOML 结构，kind 决定使用 cities 还是 subjects/students
type problemFile struct {
	Kind        domain.ProblemKind `toml:"kind"`
	Name        string             `toml:"name"`
	Description string             `toml:"description"`
	Anchor      int                `toml:"anchor"`
	Cities      []struct {
		Name string  `toml:"name"`
		X    float64 `toml:"x"`
		Y    float64 `toml:"y"`
	} `toml:"cities"`
	Subjects []struct {
		Code     string  `toml:"code"`
		Name     string  `toml:"name"`
		Duration float64 `toml:"duration"`
	} `toml:"subjects"`
	Students []struct {
		Name     string `toml:"name"`
		Subjects []int  `toml:"subjects"`
	} `toml:"students"`
}

// loadProblem 读取问题文件，返回 *domain.RoutingProblem 或 *domain.TimetableProblem
func loadProblem(path string) (any, error) {
	var pf problemFile
	md, err := toml.DecodeFile(path, &pf)
	if err != nil {
		return nil, fmt.Errorf("无法解析问题文件 %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("问题文件 %s 中有未知的字段 %s", path, undecoded[0])
	}

	meta := domain.ProblemMeta{Kind: pf.Kind, Name: pf.Name, Description: pf.Description}

	switch pf.Kind {
	case domain.ProblemKindRouting:
		rp := &domain.RoutingProblem{ProblemMeta: meta, AnchorIndex: pf.Anchor}
		for _, city := range pf.Cities {
			rp.Cities = append(rp.Cities, domain.City{Name: city.Name, X: city.X, Y: city.Y})
		}
		if err := utils.ValidateRoutingProblem(rp); err != nil {
			return nil, err
		}
		return rp, nil
	case domain.ProblemKindTimetable:
		tp := &domain.TimetableProblem{ProblemMeta: meta}
		for _, subject := range pf.Subjects {
			tp.Subjects = append(tp.Subjects, domain.Subject{Code: subject.Code, Name: subject.Name, Duration: subject.Duration})
		}
		for _, student := range pf.Students {
			tp.Students = append(tp.Students, domain.Student{Name: student.Name, SubjectIndexes: student.Subjects})
		}
		if err := utils.ValidateTimetableProblem(tp); err != nil {
			return nil, err
		}
		return tp, nil
	default:
		return nil, fmt.Errorf("未知的问题类型 %q", pf.Kind)
	}
}

// EvolutionPreset 对应参数文件中的 [evolution] 小节
type EvolutionPreset struct {
	PopulationSize int     `ini:"population_size"`
	MaxGenerations int     `ini:"max_generations"`
	MutationRate   float64 `ini:"mutation_rate"`
	EliteCount     int     `ini:"elite_count"`
	TournamentSize int     `ini:"tournament_size"`
	Seed           int64   `ini:"seed"`
	Workers        int     `ini:"workers"`
	SampleInterval int     `ini:"sample_interval"`
}

// ChartPreset 对应参数文件中的 [chart] 小节，单位是英寸
type ChartPreset struct {
	Width  float64 `ini:"width"`
	Height float64 `ini:"height"`
}

// defaultPreset 在参数文件缺少某个键时使用
func defaultPreset() (EvolutionPreset, ChartPreset) {
	return EvolutionPreset{
			PopulationSize: 50,
			MaxGenerations: 500,
			MutationRate:   0.05,
			EliteCount:     2,
			TournamentSize: 3,
			Workers:        4,
			SampleInterval: 10,
		}, ChartPreset{
			Width:  6,
			Height: 4,
		}
}

// loadPreset 读取参数文件，path 为空时直接返回默认参数
func loadPreset(path string) (EvolutionPreset, ChartPreset, error) {
	evolution, chart := defaultPreset()
	if path == "" {
		return evolution, chart, nil
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return evolution, chart, fmt.Errorf("无法读取参数文件 %s: %w", path, err)
	}

	if err := file.Section("evolution").MapTo(&evolution); err != nil {
		return evolution, chart, fmt.Errorf("无法解析 [evolution] 小节: %w", err)
	}
	if err := file.Section("chart").MapTo(&chart); err != nil {
		return evolution, chart, fmt.Errorf("无法解析 [chart] 小节: %w", err)
	}

	return evolution, chart, nil
}

// RunParameters 转换为提交给求解器的参数
func (p EvolutionPreset) RunParameters() domain.RunParameters {
	return domain.RunParameters{
		PopulationSize: p.PopulationSize,
		MaxGenerations: p.MaxGenerations,
		MutationRate:   p.MutationRate,
		EliteCount:     p.EliteCount,
		TournamentSize: p.TournamentSize,
		Seed:           p.Seed,
	}
}

// Config 构造本地运行使用的配置，本地运行不限制种群大小和迭代次数
func (p EvolutionPreset) Config() *config.Config {
	cfg := &config.Config{}
	cfg.Evolution.Workers = p.Workers
	cfg.Evolution.SampleInterval = p.SampleInterval
	cfg.Evolution.ProgressBuffer = 1024
	cfg.Evolution.MaxPopulationSize = p.PopulationSize
	cfg.Evolution.MaxGenerations = p.MaxGenerations
	return cfg
}
