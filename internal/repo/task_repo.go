package repo

import (
	"context"
	"strconv"
	"strings"
	"time"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepo interface {
	Create(ctx context.Context, t dom.Task) (dom.Task, error)
	GetByID(ctx context.Context, id int64) (dom.Task, error)
	List(ctx context.Context, f dom.TaskFilter) ([]dom.Task, error)
	Update(ctx context.Context, id int64, patch dom.Task) (dom.Task, error)
	Delete(ctx context.Context, id int64) error
	CreateBatch(ctx context.Context, tasks []dom.Task) ([]dom.Task, error)
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (dom.Stats, error)
}

const taskColumns = "id, title, description, completed, priority, due_date, created_at, updated_at, completed_at"

type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func scanTask(row pgx.Row) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	return t, err
}

func (r *PGTaskRepo) Create(ctx context.Context, t dom.Task) (dom.Task, error) {
	query := `
		INSERT INTO tasks (title, description, priority, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + taskColumns
	return scanTask(r.db.QueryRow(ctx, query, t.Title, t.Description, t.Priority, t.DueDate))
}

func (r *PGTaskRepo) GetByID(ctx context.Context, id int64) (dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *PGTaskRepo) List(ctx context.Context, f dom.TaskFilter) ([]dom.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(title ILIKE $"+n+" OR description ILIKE $"+n+")")
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		where = append(where, "completed = $"+strconv.Itoa(len(args)))
	}
	if f.Priority != nil {
		args = append(args, *f.Priority)
		where = append(where, "priority = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []dom.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTaskRepo) Update(ctx context.Context, id int64, patch dom.Task) (dom.Task, error) {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, completed = $4, priority = $5,
		    due_date = $6, completed_at = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns
	return scanTask(r.db.QueryRow(ctx, query, id,
		patch.Title, patch.Description, patch.Completed, patch.Priority,
		patch.DueDate, patch.CompletedAt,
	))
}

func (r *PGTaskRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateBatch inserts all tasks in one transaction; a failure on any row
// rolls back the whole batch.
func (r *PGTaskRepo) CreateBatch(ctx context.Context, tasks []dom.Task) ([]dom.Task, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tasks (title, description, priority, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + taskColumns

	out := make([]dom.Task, 0, len(tasks))
	for _, t := range tasks {
		created, err := scanTask(tx.QueryRow(ctx, query, t.Title, t.Description, t.Priority, t.DueDate))
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats aggregates in a single scan. The created-today window is passed in
// as half-open [dayStart, dayEnd) bounds so the timezone stays the caller's
// concern.
func (r *PGTaskRepo) Stats(ctx context.Context, dayStart, dayEnd time.Time) (dom.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE completed),
			COUNT(*) FILTER (WHERE priority = 1),
			COUNT(*) FILTER (WHERE priority = 2),
			COUNT(*) FILTER (WHERE priority = 3),
			COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2)
		FROM tasks`
	var s dom.Stats
	var p1, p2, p3 int64
	err := r.db.QueryRow(ctx, query, dayStart, dayEnd).Scan(
		&s.Total, &s.Completed, &p1, &p2, &p3, &s.CreatedToday,
	)
	if err != nil {
		return dom.Stats{}, err
	}
	s.ByPriority = map[int]int64{
		dom.PriorityLow:    p1,
		dom.PriorityMedium: p2,
		dom.PriorityHigh:   p3,
	}
	return s, nil
}
