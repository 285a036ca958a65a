package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/report"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/utils"
)

func main() {
	var problemPath string
	var presetPath string
	var chartPath string

	flag.StringVar(&problemPath, "problem", "", "问题文件路径（TOML）")
	flag.StringVar(&presetPath, "preset", "", "参数文件路径（INI），为空时使用默认参数")
	flag.StringVar(&chartPath, "chart", "", "收敛曲线的输出路径（PNG），为空时不输出")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if problemPath == "" {
		logger.Error("请通过 -problem 指定问题文件")
		os.Exit(2)
	}

	problem, err := loadProblem(problemPath)
	if err != nil {
		logger.Error("无法读取问题", slog.String("error", err.Error()))
		os.Exit(1)
	}

	preset, chart, err := loadPreset(presetPath)
	if err != nil {
		logger.Error("无法读取参数", slog.String("error", err.Error()))
		os.Exit(1)
	}

	params := preset.RunParameters()
	if err := utils.ValidateRunParameters(&params); err != nil {
		logger.Error("参数不合法", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// CTRL+C 时提前结束，输出当前最优解
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := optimizer.NewRunner(preset.Config(), nil, nil)
	run := &domain.Run{Parameters: params}

	var outcome *domain.RunOutcome
	switch p := problem.(type) {
	case *domain.RoutingProblem:
		run.Kind = domain.ProblemKindRouting
		outcome, err = runner.RunRouting(ctx, run, p)
	case *domain.TimetableProblem:
		run.Kind = domain.ProblemKindTimetable
		outcome, err = runner.RunTimetable(ctx, run, p)
	}
	if err != nil {
		logger.Error("求解失败", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("求解完成",
		slog.Float64("objective", outcome.Objective),
		slog.Bool("valid", outcome.Valid),
		slog.Any("best_genome", outcome.BestGenome),
		slog.Int("slot_count", outcome.SlotCount),
	)

	if chartPath == "" {
		return
	}

	file, err := os.Create(chartPath)
	if err != nil {
		logger.Error("无法创建图片文件", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer file.Close()

	if err := report.RenderConvergence(file, problemPath, outcome.Samples, chart.Width, chart.Height); err != nil {
		logger.Error("无法绘制收敛曲线", slog.String("error", err.Error()))
		return
	}
	logger.Info("已输出收敛曲线", slog.String("path", chartPath))
}
