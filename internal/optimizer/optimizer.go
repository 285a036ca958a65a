// Package optimizer 把数据库中的问题转换成遗传算法引擎可以求解的形式，并负责收集求解过程中的进度
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/config"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/evolution"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/monitor"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/route"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/timetable"
)

// ProgressStore 保存最近一次的进度采样
type ProgressStore interface {
	Save(ctx context.Context, runID int64, sample domain.RunSample) error
}

type Runner struct {
	cfg     *config.Config
	store   ProgressStore
	metrics *monitor.Metrics
}

// NewRunner 创建求解器，store 和 metrics 都可以为 nil
func NewRunner(cfg *config.Config, store ProgressStore, metrics *monitor.Metrics) *Runner {
	return &Runner{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
	}
}

// ToParameters 将用户提交的参数转换为引擎参数，种群大小和迭代次数不会超过服务的上限
func ToParameters(p domain.RunParameters, cfg *config.Config) evolution.Parameters {
	return evolution.Parameters{
		PopulationSize: min(p.PopulationSize, cfg.Evolution.MaxPopulationSize),
		MaxGenerations: min(p.MaxGenerations, cfg.Evolution.MaxGenerations),
		MutationRate:   p.MutationRate,
		EliteCount:     p.EliteCount,
		TournamentSize: p.TournamentSize,
		Seed:           p.Seed,
		Workers:        cfg.Evolution.Workers,
		SampleInterval: cfg.Evolution.SampleInterval,
	}
}

func toSample[G any](s evolution.Snapshot[G]) domain.RunSample {
	sample := domain.RunSample{
		Generation:  s.Generation,
		MeanFitness: s.MeanFitness,
		ValidCount:  s.ValidCount,
	}
	if s.Best.Valid && !math.IsInf(s.Best.Fitness, 0) && !math.IsNaN(s.Best.Fitness) {
		fitness := s.Best.Fitness
		sample.BestFitness = &fitness
	}
	return sample
}

// execute 运行引擎并在另一个协程中消费进度快照，返回最优个体和所有收到的采样
func execute[G any](ctx context.Context, r *Runner, run *domain.Run, problem evolution.Problem[G]) (evolution.Individual[G], []domain.RunSample, error) {
	params := ToParameters(run.Parameters, r.cfg)
	engine, err := evolution.New(params, problem)
	if err != nil {
		return evolution.Individual[G]{}, nil, err
	}

	if r.cfg.Evolution.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Evolution.RunTimeout)*time.Second)
		defer cancel()
	}

	progress := make(chan evolution.Snapshot[G], max(r.cfg.Evolution.ProgressBuffer, 1))
	samples := make([]domain.RunSample, 0)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for snapshot := range progress {
			sample := toSample(snapshot)
			samples = append(samples, sample)
			r.observe(run, sample)
		}
	}()

	best, err := engine.Run(ctx, progress)
	<-done

	return best, samples, err
}

func (r *Runner) observe(run *domain.Run, sample domain.RunSample) {
	attrs := []any{
		slog.Int64("run_id", run.ID),
		slog.Int("generation", sample.Generation),
		slog.Int("valid_count", sample.ValidCount),
	}
	if sample.BestFitness != nil {
		attrs = append(attrs, slog.Float64("best_fitness", *sample.BestFitness))
	}
	slog.Info("求解进度", attrs...)

	if r.metrics != nil {
		r.metrics.ObserveSample(run.Kind, run.ID, sample)
	}

	if r.store != nil {
		// 进度写入失败不影响求解本身
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Redis.OperationExpiration)*time.Second)
		defer cancel()
		if err := r.store.Save(ctx, run.ID, sample); err != nil {
			slog.Error("无法保存求解进度", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
		}
	}
}

func newOutcome[G ~[]int](best evolution.Individual[G], samples []domain.RunSample, objective float64) *domain.RunOutcome {
	outcome := &domain.RunOutcome{
		Objective:  objective,
		Valid:      best.Valid,
		BestGenome: []int(best.Genome),
		Samples:    samples,
	}
	if best.Valid && !math.IsInf(best.Fitness, 0) {
		fitness := best.Fitness
		outcome.BestFitness = &fitness
	}
	return outcome
}

// RunRouting 求解城市巡游问题，目标值为路线总长度
func (r *Runner) RunRouting(ctx context.Context, run *domain.Run, rp *domain.RoutingProblem) (*domain.RunOutcome, error) {
	points := make([]route.Point, len(rp.Cities))
	for i, city := range rp.Cities {
		points[i] = route.Point{X: city.X, Y: city.Y}
	}

	problem, err := route.NewProblem(points, rp.AnchorIndex)
	if err != nil {
		return nil, err
	}

	best, samples, err := execute[route.Tour](ctx, r, run, problem)
	if err != nil {
		return nil, err
	}

	// 种群为空时返回的是平凡解，不满足结构约束
	if run.Parameters.PopulationSize > 0 {
		if err := route.ValidateTour(best.Genome, len(points), rp.AnchorIndex); err != nil {
			return nil, fmt.Errorf("引擎返回了非法路线: %w", err)
		}
	}

	return newOutcome(best, samples, problem.Distance(best.Genome)), nil
}

// RunTimetable 求解排考问题，目标值为总时长，不可行时目标值为各时段最长时长之和（仅供参考）
func (r *Runner) RunTimetable(ctx context.Context, run *domain.Run, tp *domain.TimetableProblem) (*domain.RunOutcome, error) {
	durations := make([]float64, len(tp.Subjects))
	for i, subject := range tp.Subjects {
		durations[i] = subject.Duration
	}

	enrollments := make([][]int, len(tp.Students))
	for i, student := range tp.Students {
		enrollments[i] = student.SubjectIndexes
	}

	problem, err := timetable.NewProblem(durations, enrollments)
	if err != nil {
		return nil, err
	}

	best, samples, err := execute[timetable.Assignment](ctx, r, run, problem)
	if err != nil {
		return nil, err
	}

	if run.Parameters.PopulationSize > 0 {
		if err := timetable.ValidateAssignment(best.Genome, len(durations)); err != nil {
			return nil, fmt.Errorf("引擎返回了非法排考: %w", err)
		}
	}

	outcome := newOutcome(best, samples, problem.Duration(best.Genome))
	outcome.SlotCount = timetable.SlotCount(best.Genome)
	return outcome, nil
}
