package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

// NotificationLog is the audit record the worker writes for every event it
// consumes off the MQ.
type NotificationLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Kind      string    `json:"kind"` // digest.sent, invoice.issued, task.overdue
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationLogRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationLogRepository {
	return &NotificationLogRepository{db: db, logger: logger}
}

func (r *NotificationLogRepository) Insert(ctx context.Context, l *NotificationLog) error {
	query := `
        INSERT INTO notification_log (user_id, kind, detail)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, l.UserID, l.Kind, l.Detail).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification log",
			zap.Error(err),
			zap.String("kind", l.Kind),
		)
		return apperr.FromDB("insert notification log", err)
	}
	return nil
}

func (r *NotificationLogRepository) ListRecent(ctx context.Context, limit int) ([]NotificationLog, error) {
	query := `
        SELECT id, user_id, kind, detail, created_at
        FROM notification_log
        ORDER BY created_at DESC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, apperr.FromDB("list notification log", err)
	}
	defer rows.Close()

	logs := []NotificationLog{}
	for rows.Next() {
		var l NotificationLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Kind, &l.Detail, &l.CreatedAt); err != nil {
			return nil, apperr.FromDB("scan notification log row", err)
		}
		logs = append(logs, l)
	}
	return logs, apperr.FromDB("list notification log", rows.Err())
}
