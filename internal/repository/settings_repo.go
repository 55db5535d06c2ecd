package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

type SettingsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSettingsRepository(db *pgxpool.Pool, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// ListEnabled returns settings for every user whose digest is switched on,
// joined with the delivery address.
func (r *SettingsRepository) ListEnabled(ctx context.Context) ([]model.NotificationSettings, error) {
	query := `
        SELECT s.user_id, u.email, s.enabled, s.email_notifications,
               s.days_before_due, s.last_notification_sent_at
        FROM notification_settings s
        JOIN users u ON u.id = s.user_id
        WHERE s.enabled AND s.email_notifications
        ORDER BY s.user_id ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query notification settings", zap.Error(err))
		return nil, apperr.FromDB("list enabled settings", err)
	}
	defer rows.Close()

	settings := []model.NotificationSettings{}
	for rows.Next() {
		var s model.NotificationSettings
		var days []int32
		if err := rows.Scan(
			&s.UserID, &s.Email, &s.Enabled, &s.EmailNotifications,
			&days, &s.LastNotificationSentAt,
		); err != nil {
			return nil, apperr.FromDB("scan settings row", err)
		}
		s.DaysBeforeDue = make([]int, len(days))
		for i, d := range days {
			s.DaysBeforeDue[i] = int(d)
		}
		settings = append(settings, s)
	}
	return settings, apperr.FromDB("list enabled settings", rows.Err())
}

func (r *SettingsRepository) GetByUser(ctx context.Context, userID int64) (*model.NotificationSettings, error) {
	query := `
        SELECT s.user_id, u.email, s.enabled, s.email_notifications,
               s.days_before_due, s.last_notification_sent_at
        FROM notification_settings s
        JOIN users u ON u.id = s.user_id
        WHERE s.user_id = $1
    `
	var s model.NotificationSettings
	var days []int32
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.Email, &s.Enabled, &s.EmailNotifications,
		&days, &s.LastNotificationSentAt,
	)
	if err != nil {
		return nil, apperr.FromDB("get settings", err)
	}
	s.DaysBeforeDue = make([]int, len(days))
	for i, d := range days {
		s.DaysBeforeDue[i] = int(d)
	}
	return &s, nil
}

// Upsert writes a user's digest preferences.
func (r *SettingsRepository) Upsert(ctx context.Context, s *model.NotificationSettings) error {
	days := make([]int32, len(s.DaysBeforeDue))
	for i, d := range s.DaysBeforeDue {
		days[i] = int32(d)
	}

	query := `
        INSERT INTO notification_settings (user_id, enabled, email_notifications, days_before_due)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET enabled = EXCLUDED.enabled,
            email_notifications = EXCLUDED.email_notifications,
            days_before_due = EXCLUDED.days_before_due
    `
	_, err := r.db.Exec(ctx, query, s.UserID, s.Enabled, s.EmailNotifications, days)
	if err != nil {
		r.logger.Error("Failed to upsert notification settings",
			zap.Error(err),
			zap.Int64("user_id", s.UserID),
		)
		return apperr.FromDB("upsert settings", err)
	}
	return nil
}

// MarkNotified stamps last_notification_sent_at after a successful send.
// Failed sends must not call this, so the next run can retry.
func (r *SettingsRepository) MarkNotified(ctx context.Context, userID int64, at time.Time) error {
	query := `
        UPDATE notification_settings
        SET last_notification_sent_at = $1
        WHERE user_id = $2
    `
	_, err := r.db.Exec(ctx, query, at, userID)
	if err != nil {
		return apperr.FromDB("mark notified", err)
	}
	return nil
}
