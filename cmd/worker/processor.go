package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/config"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/monitor"
)

type runRepository interface {
	GetUserByID(id int64) (*domain.User, error)
	GetRoutingProblem(id int64) (*domain.RoutingProblem, error)
	GetTimetableProblem(id int64) (*domain.TimetableProblem, error)
	GetRunByID(id int64) (*domain.Run, error)
	MarkRunRunning(run *domain.Run, reclaim bool) error
	FinishRun(run *domain.Run, outcome *domain.RunOutcome) error
	FailRun(run *domain.Run, message string) error
}

type solver interface {
	RunRouting(ctx context.Context, run *domain.Run, rp *domain.RoutingProblem) (*domain.RunOutcome, error)
	RunTimetable(ctx context.Context, run *domain.Run, tp *domain.TimetableProblem) (*domain.RunOutcome, error)
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// errMalformedJob 表示消息本身有问题，重新入队也无法处理
var errMalformedJob = errors.New("无法处理的求解任务")

type processor struct {
	cfg       *config.Config
	repo      runRepository
	solver    solver
	publisher publisher
	metrics   *monitor.Metrics
}

// handle 处理一条任务消息，返回 errMalformedJob 时调用方应当丢弃该消息
//
// redelivered 为 true 时说明上一次处理没有完成（出错重新入队或 worker 中途退出），
// 此时仍处于 running 状态的记录可以被重新领取。
func (p *processor) handle(ctx context.Context, body []byte, redelivered bool) error {
	job := domain.OptimizationJob{}
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", errMalformedJob, err)
	}

	run, err := p.repo.GetRunByID(job.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: 求解任务 %d 不存在", errMalformedJob, job.RunID)
		}
		return err
	}

	if err := p.repo.MarkRunRunning(run, redelivered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 任务已经被其他 worker 领取或者已经结束，重复投递的消息直接忽略
			slog.Warn("求解任务不处于待处理状态", slog.Int64("run_id", run.ID))
			return nil
		}
		return err
	}

	slog.Info("开始求解", slog.Int64("run_id", run.ID), slog.String("kind", string(run.Kind)))
	start := time.Now()

	problemName, outcome, err := p.solve(ctx, run)
	elapsed := time.Since(start)

	if err != nil {
		slog.Error("求解失败", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
		if ferr := p.repo.FailRun(run, err.Error()); ferr != nil {
			return ferr
		}
	} else {
		slog.Info("求解完成", slog.Int64("run_id", run.ID), slog.Float64("objective", outcome.Objective), slog.Bool("valid", outcome.Valid), slog.Duration("elapsed", elapsed))
		if err := p.repo.FinishRun(run, outcome); err != nil {
			// 结果无法保存时记为失败，避免记录一直停留在 running
			slog.Error("无法保存求解结果", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
			if ferr := p.repo.FailRun(run, fmt.Sprintf("无法保存求解结果: %v", err)); ferr != nil {
				return ferr
			}
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveRun(run.Kind, run.ID, run.Status, elapsed)
	}

	p.notify(run, problemName)
	return nil
}

func (p *processor) solve(ctx context.Context, run *domain.Run) (string, *domain.RunOutcome, error) {
	switch run.Kind {
	case domain.ProblemKindRouting:
		rp, err := p.repo.GetRoutingProblem(run.ProblemID)
		if err != nil {
			return "", nil, fmt.Errorf("无法获取巡游问题: %w", err)
		}
		outcome, err := p.solver.RunRouting(ctx, run, rp)
		return rp.Name, outcome, err
	case domain.ProblemKindTimetable:
		tp, err := p.repo.GetTimetableProblem(run.ProblemID)
		if err != nil {
			return "", nil, fmt.Errorf("无法获取排考问题: %w", err)
		}
		outcome, err := p.solver.RunTimetable(ctx, run, tp)
		return tp.Name, outcome, err
	default:
		return "", nil, fmt.Errorf("未知的问题类型 %s", run.Kind)
	}
}

// notify 通过邮件通知提交者求解结果，失败只记录日志
func (p *processor) notify(run *domain.Run, problemName string) {
	user, err := p.repo.GetUserByID(run.RequestedBy)
	if err != nil {
		slog.Error("无法获取提交者信息", slog.Int64("user_id", run.RequestedBy), slog.String("error", err.Error()))
		return
	}
	if user.Email == "" {
		return
	}

	data := domain.RunFinishedMailData{
		FullName:    user.FullName,
		RunID:       run.ID,
		ProblemName: problemName,
		Status:      run.Status,
		Message:     run.ErrorMessage,
	}
	if run.Outcome != nil {
		data.Objective = run.Outcome.Objective
		data.Valid = run.Outcome.Valid
	}

	body, err := json.Marshal(domain.MailMessage{Type: "run_finished", To: user.Email, Data: data})
	if err != nil {
		slog.Error("邮件信息序列化失败", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := p.publisher.PublishWithContext(ctx, "", p.cfg.RabbitMQ.MailQueue, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}); err != nil {
		slog.Error("无法投递邮件", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
	}
}
