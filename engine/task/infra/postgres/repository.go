package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const tasksTable = "tasks"

var taskColumns = []string{
	"id",
	"agent_id",
	"prompt",
	"status",
	"status_reason",
	"created_at",
	"updated_at",
}

// DBInterface abstracts database operations for testability
type DBInterface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements task.Repository on PostgreSQL.
type Repository struct {
	db DBInterface
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db DBInterface) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *task.Task) error {
	query, args, err := sq.Insert(tasksTable).
		Columns(taskColumns...).
		Values(t.ID, t.AgentID, t.Prompt, t.Status, t.StatusReason, t.CreatedAt, t.UpdatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building create task query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return core.NewError(
					fmt.Errorf("task %s already exists", t.ID),
					core.CodeDuplicateItem,
					map[string]any{"task_id": t.ID.String()},
				)
			case pgerrcode.ForeignKeyViolation:
				return core.NewError(
					fmt.Errorf("agent %s does not exist", t.AgentID),
					core.CodeClientError,
					map[string]any{"agent_id": t.AgentID.String()},
				)
			}
		}
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id core.ID) (*task.Task, error) {
	query, args, err := sq.Select(taskColumns...).
		From(tasksTable).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get task query: %w", err)
	}
	var t task.Task
	if err := pgxscan.Get(ctx, r.db, &t, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return &t, nil
}

func (r *Repository) List(ctx context.Context) ([]task.Task, error) {
	query, args, err := sq.Select(taskColumns...).
		From(tasksTable).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list tasks query: %w", err)
	}
	tasks := make([]task.Task, 0)
	if err := pgxscan.Select(ctx, r.db, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// UpdateStatus persists the last observed workflow state. An empty reason
// clears the stored one.
func (r *Repository) UpdateStatus(ctx context.Context, id core.ID, status string, reason string) error {
	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}
	query, args, err := sq.Update(tasksTable).
		Set("status", status).
		Set("status_reason", reasonArg).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update task status query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewError(
			fmt.Errorf("task %s not found", id),
			core.CodeNotFound,
			map[string]any{"task_id": id.String()},
		)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id core.ID) error {
	query, args, err := sq.Delete(tasksTable).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete task query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewError(
			fmt.Errorf("task %s not found", id),
			core.CodeNotFound,
			map[string]any{"task_id": id.String()},
		)
	}
	return nil
}
