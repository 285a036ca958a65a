package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/progress"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/report"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/utils"
)

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	meta := r.Context().Value(ProblemMetaCtx).(*domain.ProblemMeta)

	var req struct {
		PopulationSize int     `json:"populationSize" validate:"gte=0"`
		MaxGenerations int     `json:"maxGenerations" validate:"gte=0"`
		MutationRate   float64 `json:"mutationRate" validate:"gte=0,lte=1"`
		EliteCount     int     `json:"eliteCount" validate:"gte=0"`
		TournamentSize int     `json:"tournamentSize" validate:"gte=1"`
		Seed           int64   `json:"seed"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.PopulationSize > h.config.Evolution.MaxPopulationSize {
		h.errorResponse(w, r, fmt.Sprintf("种群大小不能超过 %d", h.config.Evolution.MaxPopulationSize))
		return
	}
	if req.MaxGenerations > h.config.Evolution.MaxGenerations {
		h.errorResponse(w, r, fmt.Sprintf("迭代次数不能超过 %d", h.config.Evolution.MaxGenerations))
		return
	}

	params := domain.RunParameters{
		PopulationSize: req.PopulationSize,
		MaxGenerations: req.MaxGenerations,
		MutationRate:   req.MutationRate,
		EliteCount:     req.EliteCount,
		TournamentSize: req.TournamentSize,
		Seed:           req.Seed,
	}
	if err := utils.ValidateRunParameters(&params); err != nil {
		h.badRequest(w, r, err)
		return
	}

	requestedBy, err := currentUserID(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	run := &domain.Run{
		ProblemID:   meta.ID,
		Kind:        meta.Kind,
		Parameters:  params,
		RequestedBy: requestedBy,
	}
	if err := h.repository.CreateRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 把求解任务投递到任务队列，由 worker 负责求解
	if err := h.publishJSON(h.config.RabbitMQ.JobQueue, domain.OptimizationJob{RunID: run.ID}); err != nil {
		if ferr := h.repository.FailRun(run, "无法投递求解任务"); ferr != nil {
			h.logInternalServerError(r, ferr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "求解任务已提交", run)
}

func (h *Handler) GetProblemRuns(w http.ResponseWriter, r *http.Request) {
	meta := r.Context().Value(ProblemMetaCtx).(*domain.ProblemMeta)

	runs, err := h.repository.GetRunsByProblemID(meta.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取求解记录成功", runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.Run)
	h.successResponse(w, r, "获取求解任务成功", run)
}

func (h *Handler) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.Run)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	sample, err := h.progress.Latest(ctx, run.ID)
	if err != nil {
		if !errors.Is(err, progress.ErrNoProgress) {
			h.internalServerError(w, r, err)
			return
		}

		// redis 中的进度可能已经过期，已完成的任务退回到数据库中的最后一个采样
		if run.Outcome != nil && len(run.Outcome.Samples) > 0 {
			sample = &run.Outcome.Samples[len(run.Outcome.Samples)-1]
		} else {
			h.successResponse(w, r, "暂无进度", nil)
			return
		}
	}

	h.successResponse(w, r, "获取求解进度成功", sample)
}

func (h *Handler) GetRunChart(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.Run)

	if run.Outcome == nil {
		h.errorResponse(w, r, "求解任务尚未完成")
		return
	}

	// 先渲染到缓冲区，出错时还能返回 JSON
	var buf bytes.Buffer
	title := fmt.Sprintf("run #%d", run.ID)
	if err := report.RenderConvergence(&buf, title, run.Outcome.Samples, h.config.Chart.Width, h.config.Chart.Height); err != nil {
		switch {
		case errors.Is(err, report.ErrNoSamples):
			h.errorResponse(w, r, "没有可用于绘图的进度采样")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}
