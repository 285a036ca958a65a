package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

const runColumns = `
	id, problem_id, kind,
	population_size, max_generations, mutation_rate, elite_count, tournament_size, seed,
	status, best_fitness, objective, valid, best_genome, slot_count, samples,
	error_message, requested_by, created_at, finished_at, version
`

// 扫描一行 runs 记录，结果相关的列在求解完成之前都是 NULL
type runRow struct {
	run         domain.Run
	bestFitness sql.NullFloat64
	objective   sql.NullFloat64
	valid       sql.NullBool
	bestGenome  []byte
	slotCount   sql.NullInt32
	samples     []byte
	finishedAt  sql.NullTime
}

func (row *runRow) dst() []any {
	p := &row.run.Parameters
	return []any{
		&row.run.ID, &row.run.ProblemID, &row.run.Kind,
		&p.PopulationSize, &p.MaxGenerations, &p.MutationRate, &p.EliteCount, &p.TournamentSize, &p.Seed,
		&row.run.Status, &row.bestFitness, &row.objective, &row.valid, &row.bestGenome, &row.slotCount, &row.samples,
		&row.run.ErrorMessage, &row.run.RequestedBy, &row.run.CreatedAt, &row.finishedAt, &row.run.Version,
	}
}

func (row *runRow) toRun() (*domain.Run, error) {
	run := row.run

	if row.finishedAt.Valid {
		run.FinishedAt = &row.finishedAt.Time
	}

	if row.bestGenome != nil {
		outcome := &domain.RunOutcome{
			Objective: row.objective.Float64,
			Valid:     row.valid.Bool,
			SlotCount: int(row.slotCount.Int32),
		}
		if row.bestFitness.Valid {
			outcome.BestFitness = &row.bestFitness.Float64
		}
		if err := json.Unmarshal(row.bestGenome, &outcome.BestGenome); err != nil {
			return nil, err
		}
		if row.samples != nil {
			if err := json.Unmarshal(row.samples, &outcome.Samples); err != nil {
				return nil, err
			}
		}
		run.Outcome = outcome
	}

	return &run, nil
}

func (r *Repository) CreateRun(run *domain.Run) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		INSERT INTO runs (problem_id, kind, population_size, max_generations, mutation_rate, elite_count, tournament_size, seed, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, created_at, version
	`

	p := run.Parameters
	args := []any{run.ProblemID, run.Kind, p.PopulationSize, p.MaxGenerations, p.MutationRate, p.EliteCount, p.TournamentSize, p.Seed, run.RequestedBy}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.Status, &run.CreatedAt, &run.Version)
}

func (r *Repository) GetRunByID(id int64) (*domain.Run, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	row := &runRow{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(row.dst()...); err != nil {
		return nil, err
	}

	return row.toRun()
}

func (r *Repository) GetRunsByProblemID(problemID int64) ([]*domain.Run, error) {
	return r.queryRuns(`SELECT `+runColumns+` FROM runs WHERE problem_id = $1 ORDER BY id DESC`, problemID)
}

// GetRunsByRequester 返回某个用户提交的求解记录，status 为空时不按状态过滤
func (r *Repository) GetRunsByRequester(userID int64, status domain.RunStatus) ([]*domain.Run, error) {
	if status == "" {
		return r.queryRuns(`SELECT `+runColumns+` FROM runs WHERE requested_by = $1 ORDER BY id DESC`, userID)
	}
	return r.queryRuns(`SELECT `+runColumns+` FROM runs WHERE requested_by = $1 AND status = $2 ORDER BY id DESC`, userID, status)
}

func (r *Repository) queryRuns(query string, args ...any) ([]*domain.Run, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		row := &runRow{}
		if err := rows.Scan(row.dst()...); err != nil {
			return nil, err
		}
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// FailPendingRunsByRequester 把某个用户所有还没有开始的求解记录标记为失败，返回受影响的记录数
// worker 只会领取 pending 的记录，因此这些任务即使还在队列中也不会再被求解
func (r *Repository) FailPendingRunsByRequester(userID int64, message string) (int64, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE runs
		SET status = $1, error_message = $2, finished_at = NOW(), version = version + 1
		WHERE requested_by = $3 AND status = $4
	`

	result, err := r.dbpool.ExecContext(ctx, query, domain.RunStatusFailed, message, userID, domain.RunStatusPending)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// MarkRunRunning 领取一条 pending 的记录，reclaim 为 true 时也可以重新领取 running 的记录
// 已经结束的记录会得到 sql.ErrNoRows
func (r *Repository) MarkRunRunning(run *domain.Run, reclaim bool) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE runs
		SET status = $1, version = version + 1
		WHERE id = $2 AND (status = $3 OR ($4 AND status = $1))
		RETURNING status, version
	`

	return r.dbpool.QueryRowContext(ctx, query, domain.RunStatusRunning, run.ID, domain.RunStatusPending, reclaim).Scan(&run.Status, &run.Version)
}

func (r *Repository) FinishRun(run *domain.Run, outcome *domain.RunOutcome) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	genome, err := json.Marshal(outcome.BestGenome)
	if err != nil {
		return err
	}
	samples, err := json.Marshal(outcome.Samples)
	if err != nil {
		return err
	}

	var bestFitness sql.NullFloat64
	if outcome.BestFitness != nil {
		bestFitness = sql.NullFloat64{Float64: *outcome.BestFitness, Valid: true}
	}

	query := `
		UPDATE runs
		SET
			status = $1,
			best_fitness = $2,
			objective = $3,
			valid = $4,
			best_genome = $5,
			slot_count = $6,
			samples = $7,
			finished_at = NOW(),
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING status, finished_at, version
	`

	var finishedAt time.Time
	args := []any{domain.RunStatusSucceeded, bestFitness, outcome.Objective, outcome.Valid, genome, outcome.SlotCount, samples, run.ID, run.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.Status, &finishedAt, &run.Version); err != nil {
		return err
	}

	run.FinishedAt = &finishedAt
	run.Outcome = outcome
	return nil
}

func (r *Repository) FailRun(run *domain.Run, message string) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE runs
		SET status = $1, error_message = $2, finished_at = NOW(), version = version + 1
		WHERE id = $3
		RETURNING status, finished_at, version
	`

	var finishedAt time.Time
	if err := r.dbpool.QueryRowContext(ctx, query, domain.RunStatusFailed, message, run.ID).Scan(&run.Status, &finishedAt, &run.Version); err != nil {
		return err
	}

	run.ErrorMessage = message
	run.FinishedAt = &finishedAt
	return nil
}
