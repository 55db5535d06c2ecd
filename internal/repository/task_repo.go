package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
	"github.com/mjaychoi/hc-violins/pkg/metrics"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `
	id, instrument_id, client_id, assigned_to, title, description, status,
	received_date, due_date, personal_due_date, scheduled_date,
	created_at, updated_at
`

func scanTask(row interface{ Scan(dest ...any) error }, t *model.MaintenanceTask) error {
	return row.Scan(
		&t.ID,
		&t.InstrumentID,
		&t.ClientID,
		&t.AssignedTo,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.ReceivedDate,
		&t.DueDate,
		&t.PersonalDueDate,
		&t.ScheduledDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.MaintenanceTask) error {
	r.logger.Debug("Inserting maintenance task",
		zap.String("title", t.Title),
		zap.String("status", t.Status),
	)
	query := `
        INSERT INTO maintenance_tasks
            (instrument_id, client_id, assigned_to, title, description, status,
             received_date, due_date, personal_due_date, scheduled_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.InstrumentID,
		t.ClientID,
		t.AssignedTo,
		t.Title,
		t.Description,
		t.Status,
		t.ReceivedDate,
		t.DueDate,
		t.PersonalDueDate,
		t.ScheduledDate,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert maintenance task",
			zap.Error(err),
			zap.String("title", t.Title),
		)
		return apperr.FromDB("insert maintenance task", err)
	}
	r.logger.Info("Maintenance task inserted successfully",
		zap.Int64("task_id", t.ID),
	)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.MaintenanceTask, error) {
	query := `SELECT ` + taskColumns + ` FROM maintenance_tasks WHERE id = $1`

	var t model.MaintenanceTask
	if err := scanTask(r.db.QueryRow(ctx, query, id), &t); err != nil {
		return nil, apperr.FromDB("get maintenance task", err)
	}
	return &t, nil
}

// ListOpen returns every pending or in-progress task. The notifier feeds
// these through the classifier; closed tasks never alert so they are
// filtered here, not downstream.
func (r *TaskRepository) ListOpen(ctx context.Context) ([]model.MaintenanceTask, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("list_open", "maintenance_tasks", time.Since(start))
	}()

	query := `
        SELECT ` + taskColumns + `
        FROM maintenance_tasks
        WHERE status IN ('pending', 'in_progress')
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query open tasks", zap.Error(err))
		return nil, apperr.FromDB("list open tasks", err)
	}
	defer rows.Close()

	tasks := []model.MaintenanceTask{}
	for rows.Next() {
		var t model.MaintenanceTask
		if err := scanTask(rows, &t); err != nil {
			return nil, apperr.FromDB("scan task row", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, apperr.FromDB("list open tasks", rows.Err())
}

func (r *TaskRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]model.MaintenanceTask, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM maintenance_tasks
        WHERE status = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperr.FromDB("list tasks by status", err)
	}
	defer rows.Close()

	tasks := []model.MaintenanceTask{}
	for rows.Next() {
		var t model.MaintenanceTask
		if err := scanTask(rows, &t); err != nil {
			return nil, apperr.FromDB("scan task row", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, apperr.FromDB("list tasks by status", rows.Err())
}

func (r *TaskRepository) Update(ctx context.Context, t *model.MaintenanceTask) error {
	query := `
        UPDATE maintenance_tasks
        SET instrument_id = $1, client_id = $2, assigned_to = $3, title = $4,
            description = $5, status = $6, received_date = $7, due_date = $8,
            personal_due_date = $9, scheduled_date = $10, updated_at = NOW()
        WHERE id = $11
    `
	tag, err := r.db.Exec(ctx, query,
		t.InstrumentID,
		t.ClientID,
		t.AssignedTo,
		t.Title,
		t.Description,
		t.Status,
		t.ReceivedDate,
		t.DueDate,
		t.PersonalDueDate,
		t.ScheduledDate,
		t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update maintenance task",
			zap.Error(err),
			zap.Int64("task_id", t.ID),
		)
		return apperr.FromDB("update maintenance task", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "maintenance task not found")
	}
	return nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.logger.Debug("Updating task status",
		zap.Int64("task_id", id),
		zap.String("status", status),
	)
	query := `
        UPDATE maintenance_tasks
        SET status = $1, updated_at = NOW()
        WHERE id = $2
    `
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update task status",
			zap.Error(err),
			zap.Int64("task_id", id),
		)
		return apperr.FromDB("update task status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "maintenance task not found")
	}
	r.logger.Info("Task status updated",
		zap.Int64("task_id", id),
		zap.String("status", status),
	)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM maintenance_tasks WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB("delete maintenance task", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "maintenance task not found")
	}
	return nil
}
