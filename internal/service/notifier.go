package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/digest"
	"github.com/mjaychoi/hc-violins/internal/duedate"
	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/circuitbreaker"
	"github.com/mjaychoi/hc-violins/pkg/metrics"
	"github.com/mjaychoi/hc-violins/pkg/mq"
)

// SettingsStore is the slice of the settings repository the notifier needs.
type SettingsStore interface {
	ListEnabled(ctx context.Context) ([]model.NotificationSettings, error)
	MarkNotified(ctx context.Context, userID int64, at time.Time) error
}

// TaskStore is the slice of the task repository the notifier needs.
type TaskStore interface {
	ListOpen(ctx context.Context) ([]model.MaintenanceTask, error)
}

// DedupStore guards against double-sending within a run window.
type DedupStore interface {
	AcquireOnce(ctx context.Context, op, subject string) bool
	Release(ctx context.Context, op, subject string)
}

// EventPublisher publishes batch events onto the MQ.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// RunStats summarizes one notification run.
type RunStats struct {
	Users   int
	Sent    int
	Failed  int
	Skipped int
}

// Notifier drives the daily due-date digest batch. Each user is an
// independent unit of work: one user's failure never aborts the run, and
// last_notification_sent_at moves only on a successful send so the next
// run retries cleanly.
type Notifier struct {
	settings  SettingsStore
	tasks     TaskStore
	sender    Sender
	dedup     DedupStore
	breaker   *circuitbreaker.CircuitBreaker
	publisher EventPublisher
	logger    *zap.Logger
}

func NewNotifier(
	settings SettingsStore,
	tasks TaskStore,
	sender Sender,
	dedup DedupStore,
	breaker *circuitbreaker.CircuitBreaker,
	publisher EventPublisher,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		settings:  settings,
		tasks:     tasks,
		sender:    sender,
		dedup:     dedup,
		breaker:   breaker,
		publisher: publisher,
		logger:    logger,
	}
}

// Run assembles and delivers digests for the given moment.
func (n *Notifier) Run(ctx context.Context, now time.Time) (RunStats, error) {
	var stats RunStats

	users, err := n.settings.ListEnabled(ctx)
	if err != nil {
		n.logger.Error("Failed to load notification settings", zap.Error(err))
		return stats, err
	}

	tasks, err := n.tasks.ListOpen(ctx)
	if err != nil {
		n.logger.Error("Failed to load open tasks", zap.Error(err))
		return stats, err
	}

	digests := digest.Build(users, tasks, now)

	n.logger.Info("Digest batch assembled",
		zap.Int("subscribed_users", len(users)),
		zap.Int("open_tasks", len(tasks)),
		zap.Int("digests", len(digests)),
	)

	for _, user := range users {
		d, ok := digests[user.UserID]
		if !ok {
			continue
		}
		stats.Users++
		metrics.DigestBuiltCount.Inc()

		n.deliverOne(ctx, &user, d, now, &stats)
	}

	n.logger.Info("Digest batch completed",
		zap.Int("users", stats.Users),
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func (n *Notifier) deliverOne(ctx context.Context, user *model.NotificationSettings, d *digest.Digest, now time.Time, stats *RunStats) {
	dedupKey := fmt.Sprintf("%d:%s", user.UserID, now.Format("2006-01-02"))

	if n.dedup != nil && !n.dedup.AcquireOnce(ctx, "digest", dedupKey) {
		n.logger.Debug("Digest already sent today, skipping",
			zap.Int64("user_id", user.UserID),
		)
		stats.Skipped++
		metrics.IncrementDigestSend("skipped")
		return
	}

	subject, body, err := RenderDigest(d)
	if err == nil {
		err = n.breaker.Execute(func() error {
			return n.sender.Send(ctx, user.Email, subject, body)
		})
	}
	if err != nil {
		n.logger.Error("Digest send failed",
			zap.Int64("user_id", user.UserID),
			zap.Error(err),
		)
		if n.dedup != nil {
			n.dedup.Release(ctx, "digest", dedupKey)
		}
		stats.Failed++
		metrics.IncrementDigestSend("failed")
		return
	}

	if err := n.settings.MarkNotified(ctx, user.UserID, now); err != nil {
		// The email already went out; log and move on, the worst case is
		// an extra retry window.
		n.logger.Error("Failed to stamp last_notification_sent_at",
			zap.Int64("user_id", user.UserID),
			zap.Error(err),
		)
	}

	if n.publisher != nil {
		payload := mq.DigestSentPayload{
			UserID:   fmt.Sprintf("%d", user.UserID),
			Overdue:  len(d.Overdue),
			Today:    len(d.Today),
			Upcoming: len(d.Upcoming),
			SentAt:   now,
		}
		if err := n.publisher.Publish(mq.RoutingKeyDigestSent, payload); err != nil {
			n.logger.Error("Failed to publish digest.sent event",
				zap.Int64("user_id", user.UserID),
				zap.Error(err),
			)
		}
	}

	stats.Sent++
	metrics.IncrementDigestSend("success")
}

// SweepOverdue publishes a task.overdue event for every open task past its
// due day. Classification is derived, never written back to the task row.
func (n *Notifier) SweepOverdue(ctx context.Context, now time.Time) error {
	tasks, err := n.tasks.ListOpen(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, task := range tasks {
		c := duedate.Classify(&task, now, duedate.DefaultUpcomingWindow)
		metrics.IncrementTaskClassified(string(c.Status))
		if c.Status != duedate.StatusOverdue {
			continue
		}

		if n.publisher == nil {
			continue
		}
		payload := mq.TaskOverduePayload{
			TaskID: task.ID,
			Title:  task.Title,
			Days:   c.Days,
		}
		if err := n.publisher.Publish(mq.RoutingKeyTaskOverdue, payload); err != nil {
			n.logger.Error("Failed to publish task.overdue event",
				zap.Int64("task_id", task.ID),
				zap.Error(err),
			)
			continue
		}
		count++
	}

	n.logger.Info("Overdue sweep completed",
		zap.Int("total_open", len(tasks)),
		zap.Int("overdue_published", count),
	)
	return nil
}
