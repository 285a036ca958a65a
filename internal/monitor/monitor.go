package monitor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

type Metrics struct {
	GenerationsTotal *prometheus.CounterVec
	BestFitness      *prometheus.GaugeVec
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evolver",
			Name:      "generations_total",
			Help:      "Number of sampled generations processed, by problem kind",
		}, []string{"kind"}),
		BestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolver",
			Name:      "best_fitness",
			Help:      "Best fitness of the latest sampled generation, by run",
		}, []string{"run_id"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evolver",
			Name:      "runs_total",
			Help:      "Finished optimization runs, by problem kind and status",
		}, []string{"kind", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evolver",
			Name:      "run_duration_seconds",
			Help:      "Wall time of optimization runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"kind"}),
	}

	reg.MustRegister(m.GenerationsTotal, m.BestFitness, m.RunsTotal, m.RunDuration)
	return m
}

// ObserveSample 记录一次进度采样，不可行的最优个体不会更新 gauge
func (m *Metrics) ObserveSample(kind domain.ProblemKind, runID int64, sample domain.RunSample) {
	m.GenerationsTotal.With(prometheus.Labels{"kind": string(kind)}).Inc()
	if sample.BestFitness != nil {
		m.BestFitness.With(prometheus.Labels{"run_id": strconv.FormatInt(runID, 10)}).Set(*sample.BestFitness)
	}
}

func (m *Metrics) ObserveRun(kind domain.ProblemKind, runID int64, status domain.RunStatus, elapsed time.Duration) {
	m.RunsTotal.With(prometheus.Labels{"kind": string(kind), "status": string(status)}).Inc()
	m.RunDuration.With(prometheus.Labels{"kind": string(kind)}).Observe(elapsed.Seconds())
	// 求解结束后不再需要这个 run 的 gauge
	m.BestFitness.DeleteLabelValues(strconv.FormatInt(runID, 10))
}
