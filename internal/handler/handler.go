package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/config"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

// Repository 是 handler 用到的持久化操作，由 *repository.Repository 实现
type Repository interface {
	GetUserByID(id int64) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	CreateUser(user *domain.User) error
	UpdateUser(user *domain.User) error

	CreateRoutingProblem(rp *domain.RoutingProblem) error
	CreateTimetableProblem(tp *domain.TimetableProblem) error
	GetProblemMeta(id int64) (*domain.ProblemMeta, error)
	GetAllProblems() ([]*domain.ProblemMeta, error)
	GetRoutingProblem(id int64) (*domain.RoutingProblem, error)
	GetTimetableProblem(id int64) (*domain.TimetableProblem, error)
	DeleteProblem(id int64) error

	CreateRun(run *domain.Run) error
	GetRunByID(id int64) (*domain.Run, error)
	GetRunsByProblemID(problemID int64) ([]*domain.Run, error)
	GetRunsByRequester(userID int64, status domain.RunStatus) ([]*domain.Run, error)
	FailPendingRunsByRequester(userID int64, message string) (int64, error)
	FailRun(run *domain.Run, message string) error
}

// Publisher 向消息队列投递消息，由 *amqp.Channel 实现
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ProgressReader 读取求解任务最近一次的进度，由 *progress.Store 实现
type ProgressReader interface {
	Latest(ctx context.Context, runID int64) (*domain.RunSample, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository Repository
	translator ut.Translator
	publisher  Publisher
	progress   ProgressReader
	gatherer   prometheus.Gatherer

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Repository, publisher Publisher, progress ProgressReader, gatherer prometheus.Gatherer) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		publisher:  publisher,
		progress:   progress,
		gatherer:   gatherer,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	if h.gatherer != nil {
		h.Mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Get("/runs", h.GetMyRuns)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
			})
		})

		r.Route("/problems", func(r chi.Router) {
			r.Post("/routing", h.CreateRoutingProblem)
			r.Post("/timetable", h.CreateTimetableProblem)
			r.Get("/", h.GetAllProblems)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.problemMeta)
				r.Get("/", h.GetProblem)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteProblem)
				r.Post("/runs", h.CreateRun)
				r.Get("/runs", h.GetProblemRuns)
			})
		})

		r.Route("/runs/{id}", func(r chi.Router) {
			r.Use(h.run)
			r.Get("/", h.GetRun)
			r.Get("/progress", h.GetRunProgress)
			r.Get("/chart", h.GetRunChart)
		})
	})
}
