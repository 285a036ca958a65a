package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// myRunsSummary 是当前用户提交过的求解任务按状态的统计
type myRunsSummary struct {
	Total  int                      `json:"total"`
	Counts map[domain.RunStatus]int `json:"counts"`
	Runs   []*domain.Run            `json:"runs"`
}

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

// GetMyRuns 返回当前用户提交的求解任务，可以通过 ?status= 按状态过滤
// 列表中不包含每一代的采样，需要曲线时再通过 /runs/{id} 获取
func (h *Handler) GetMyRuns(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	status := r.URL.Query().Get("status")
	if err := h.validate.Var(status, "omitempty,oneof=pending running succeeded failed"); err != nil {
		h.errorResponse(w, r, "无效的任务状态")
		return
	}

	runs, err := h.repository.GetRunsByRequester(myInfo.ID, domain.RunStatus(status))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	summary := myRunsSummary{
		Total:  len(runs),
		Counts: make(map[domain.RunStatus]int),
		Runs:   runs,
	}
	for _, run := range runs {
		summary.Counts[run.Status]++
		if run.Outcome != nil {
			run.Outcome.Samples = nil
		}
	}

	h.successResponse(w, r, "获取求解任务列表成功", summary)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)) != nil {
		h.errorResponse(w, r, "旧密码错误")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	myInfo.PasswordHash = string(hash)

	if err := h.repository.UpdateUser(myInfo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.errorResponse(w, r, "更新密码失败，请重试")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新密码成功", nil)
}
