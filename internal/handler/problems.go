package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/utils"
)

// problemConstraintError 把数据库约束冲突转换成用户能看懂的错误，其他错误返回 nil
func problemConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	switch pgErr.ConstraintName {
	case "problems_name_key":
		return errors.New("问题名称已存在")
	case "problem_subjects_code_key":
		return errors.New("科目代码重复")
	default:
		return nil
	}
}

func (h *Handler) CreateRoutingProblem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string        `json:"name" validate:"required,max=100"`
		Description string        `json:"description" validate:"max=500"`
		AnchorIndex int           `json:"anchorIndex" validate:"gte=0"`
		Cities      []domain.City `json:"cities" validate:"required,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	createdBy, err := currentUserID(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	rp := &domain.RoutingProblem{
		ProblemMeta: domain.ProblemMeta{
			Kind:        domain.ProblemKindRouting,
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   createdBy,
		},
		AnchorIndex: req.AnchorIndex,
		Cities:      req.Cities,
	}

	if err := utils.ValidateRoutingProblem(rp); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateRoutingProblem(rp); err != nil {
		if cerr := problemConstraintError(err); cerr != nil {
			h.badRequest(w, r, cerr)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建巡游问题成功", rp)
}

func (h *Handler) CreateTimetableProblem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string           `json:"name" validate:"required,max=100"`
		Description string           `json:"description" validate:"max=500"`
		Subjects    []domain.Subject `json:"subjects" validate:"required,min=1"`
		Students    []domain.Student `json:"students"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	createdBy, err := currentUserID(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	tp := &domain.TimetableProblem{
		ProblemMeta: domain.ProblemMeta{
			Kind:        domain.ProblemKindTimetable,
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   createdBy,
		},
		Subjects: req.Subjects,
		Students: req.Students,
	}
	if tp.Students == nil {
		tp.Students = make([]domain.Student, 0)
	}

	if err := utils.ValidateTimetableProblem(tp); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateTimetableProblem(tp); err != nil {
		if cerr := problemConstraintError(err); cerr != nil {
			h.badRequest(w, r, cerr)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建排考问题成功", tp)
}

func (h *Handler) GetAllProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.repository.GetAllProblems()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取问题列表成功", problems)
}

func (h *Handler) GetProblem(w http.ResponseWriter, r *http.Request) {
	meta := r.Context().Value(ProblemMetaCtx).(*domain.ProblemMeta)

	var (
		problem any
		err     error
	)
	switch meta.Kind {
	case domain.ProblemKindRouting:
		problem, err = h.repository.GetRoutingProblem(meta.ID)
	case domain.ProblemKindTimetable:
		problem, err = h.repository.GetTimetableProblem(meta.ID)
	default:
		err = errors.New("未知的问题类型 " + string(meta.Kind))
	}

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "问题不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取问题成功", problem)
}

func (h *Handler) DeleteProblem(w http.ResponseWriter, r *http.Request) {
	meta := r.Context().Value(ProblemMetaCtx).(*domain.ProblemMeta)

	if err := h.repository.DeleteProblem(meta.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "问题不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除问题成功", nil)
}
