package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/domain"
)

// 插入问题的公共部分，需要在事务中调用
func insertProblemMeta(ctx context.Context, tx *sql.Tx, meta *domain.ProblemMeta, anchorIndex int) error {
	query := `
		INSERT INTO problems (kind, name, description, anchor_index, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	args := []any{meta.Kind, meta.Name, meta.Description, anchorIndex, meta.CreatedBy}
	return tx.QueryRowContext(ctx, query, args...).Scan(&meta.ID, &meta.CreatedAt, &meta.Version)
}

func (r *Repository) CreateRoutingProblem(rp *domain.RoutingProblem) error {
	ctx, cancel := r.txContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rp.Kind = domain.ProblemKindRouting
	if err := insertProblemMeta(ctx, tx, &rp.ProblemMeta, rp.AnchorIndex); err != nil {
		return err
	}

	for position, city := range rp.Cities {
		query := `
			INSERT INTO problem_cities (problem_id, position, name, x, y)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, rp.ID, position, city.Name, city.X, city.Y); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) CreateTimetableProblem(tp *domain.TimetableProblem) error {
	ctx, cancel := r.txContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	tp.Kind = domain.ProblemKindTimetable
	if err := insertProblemMeta(ctx, tx, &tp.ProblemMeta, 0); err != nil {
		return err
	}

	for position, subject := range tp.Subjects {
		query := `
			INSERT INTO problem_subjects (problem_id, position, code, name, duration)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, tp.ID, position, subject.Code, subject.Name, subject.Duration); err != nil {
			return err
		}
	}

	for position, student := range tp.Students {
		indexes, err := json.Marshal(student.SubjectIndexes)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO problem_students (problem_id, position, name, subject_indexes)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, query, tp.ID, position, student.Name, indexes); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetProblemMeta(id int64) (*domain.ProblemMeta, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT id, kind, name, description, created_by, created_at, version
		FROM problems WHERE id = $1
	`

	meta := &domain.ProblemMeta{}
	dst := []any{&meta.ID, &meta.Kind, &meta.Name, &meta.Description, &meta.CreatedBy, &meta.CreatedAt, &meta.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return meta, nil
}

func (r *Repository) GetAllProblems() ([]*domain.ProblemMeta, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT id, kind, name, description, created_by, created_at, version
		FROM problems ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	problems := make([]*domain.ProblemMeta, 0)
	for rows.Next() {
		meta := &domain.ProblemMeta{}
		dst := []any{&meta.ID, &meta.Kind, &meta.Name, &meta.Description, &meta.CreatedBy, &meta.CreatedAt, &meta.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		problems = append(problems, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return problems, nil
}

func (r *Repository) GetRoutingProblem(id int64) (*domain.RoutingProblem, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rp := &domain.RoutingProblem{}

	query := `
		SELECT id, kind, name, description, anchor_index, created_by, created_at, version
		FROM problems WHERE id = $1 AND kind = $2
	`
	dst := []any{&rp.ID, &rp.Kind, &rp.Name, &rp.Description, &rp.AnchorIndex, &rp.CreatedBy, &rp.CreatedAt, &rp.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id, domain.ProblemKindRouting).Scan(dst...); err != nil {
		return nil, err
	}

	query = `SELECT name, x, y FROM problem_cities WHERE problem_id = $1 ORDER BY position`
	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rp.Cities = make([]domain.City, 0)
	for rows.Next() {
		var city domain.City
		if err := rows.Scan(&city.Name, &city.X, &city.Y); err != nil {
			return nil, err
		}
		rp.Cities = append(rp.Cities, city)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rp, nil
}

func (r *Repository) GetTimetableProblem(id int64) (*domain.TimetableProblem, error) {
	ctx, cancel := r.txContext()
	defer cancel()

	tp := &domain.TimetableProblem{}

	query := `
		SELECT id, kind, name, description, created_by, created_at, version
		FROM problems WHERE id = $1 AND kind = $2
	`
	dst := []any{&tp.ID, &tp.Kind, &tp.Name, &tp.Description, &tp.CreatedBy, &tp.CreatedAt, &tp.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id, domain.ProblemKindTimetable).Scan(dst...); err != nil {
		return nil, err
	}

	subjectRows, err := r.dbpool.QueryContext(ctx, `SELECT code, name, duration FROM problem_subjects WHERE problem_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer subjectRows.Close()

	tp.Subjects = make([]domain.Subject, 0)
	for subjectRows.Next() {
		var subject domain.Subject
		if err := subjectRows.Scan(&subject.Code, &subject.Name, &subject.Duration); err != nil {
			return nil, err
		}
		tp.Subjects = append(tp.Subjects, subject)
	}
	if err := subjectRows.Err(); err != nil {
		return nil, err
	}

	studentRows, err := r.dbpool.QueryContext(ctx, `SELECT name, subject_indexes FROM problem_students WHERE problem_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer studentRows.Close()

	tp.Students = make([]domain.Student, 0)
	for studentRows.Next() {
		var (
			student domain.Student
			indexes []byte
		)
		if err := studentRows.Scan(&student.Name, &indexes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(indexes, &student.SubjectIndexes); err != nil {
			return nil, err
		}
		tp.Students = append(tp.Students, student)
	}
	if err := studentRows.Err(); err != nil {
		return nil, err
	}

	return tp, nil
}

// DeleteProblem 删除问题，城市、科目、学生以及求解记录通过外键级联删除
func (r *Repository) DeleteProblem(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
