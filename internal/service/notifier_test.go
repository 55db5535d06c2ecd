package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/circuitbreaker"
	"github.com/mjaychoi/hc-violins/pkg/mq"
)

func strPtr(s string) *string { return &s }

type fakeSettingsStore struct {
	users    []model.NotificationSettings
	notified []int64
}

func (f *fakeSettingsStore) ListEnabled(ctx context.Context) ([]model.NotificationSettings, error) {
	return f.users, nil
}

func (f *fakeSettingsStore) MarkNotified(ctx context.Context, userID int64, at time.Time) error {
	f.notified = append(f.notified, userID)
	return nil
}

type fakeTaskStore struct {
	tasks []model.MaintenanceTask
}

func (f *fakeTaskStore) ListOpen(ctx context.Context) ([]model.MaintenanceTask, error) {
	return f.tasks, nil
}

type fakeSender struct {
	failFor map[string]bool
	sent    []string
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if f.failFor[to] {
		return errors.New("relay refused")
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeDedup struct {
	taken    map[string]bool
	released []string
}

func (f *fakeDedup) AcquireOnce(ctx context.Context, op, subject string) bool {
	key := op + ":" + subject
	if f.taken == nil {
		f.taken = map[string]bool{}
	}
	if f.taken[key] {
		return false
	}
	f.taken[key] = true
	return true
}

func (f *fakeDedup) Release(ctx context.Context, op, subject string) {
	key := op + ":" + subject
	delete(f.taken, key)
	f.released = append(f.released, key)
}

type fakePublisher struct {
	keys []string
}

func (f *fakePublisher) Publish(routingKey string, payload any) error {
	f.keys = append(f.keys, routingKey)
	return nil
}

func newTestNotifier(settings *fakeSettingsStore, tasks *fakeTaskStore, sender Sender, dedup *fakeDedup, pub *fakePublisher) *Notifier {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	return NewNotifier(settings, tasks, sender, dedup, breaker, pub, zap.NewNop())
}

func TestNotifierRunSendsAndStamps(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	settings := &fakeSettingsStore{users: []model.NotificationSettings{
		{UserID: 1, Email: "anna@hc.example", Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{3, 1}},
	}}
	tasks := &fakeTaskStore{tasks: []model.MaintenanceTask{
		{ID: 10, Title: "Rehair bow", Status: model.TaskStatusPending, DueDate: strPtr("2025-03-08")},
	}}
	sender := &fakeSender{}
	dedup := &fakeDedup{}
	pub := &fakePublisher{}

	stats, err := newTestNotifier(settings, tasks, sender, dedup, pub).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 1 sent 0 failed", stats)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "anna@hc.example" {
		t.Fatalf("sent = %v", sender.sent)
	}
	if len(settings.notified) != 1 || settings.notified[0] != 1 {
		t.Fatalf("notified = %v, want [1]", settings.notified)
	}
	if len(pub.keys) != 1 || pub.keys[0] != mq.RoutingKeyDigestSent {
		t.Fatalf("published keys = %v", pub.keys)
	}
}

func TestNotifierRunFailureDoesNotStampAndOthersContinue(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	settings := &fakeSettingsStore{users: []model.NotificationSettings{
		{UserID: 1, Email: "broken@hc.example", Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{3}},
		{UserID: 2, Email: "fine@hc.example", Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{3}},
	}}
	tasks := &fakeTaskStore{tasks: []model.MaintenanceTask{
		{ID: 10, Title: "Replace strings", Status: model.TaskStatusPending, DueDate: strPtr("2025-03-10")},
	}}
	sender := &fakeSender{failFor: map[string]bool{"broken@hc.example": true}}
	dedup := &fakeDedup{}
	pub := &fakePublisher{}

	stats, err := newTestNotifier(settings, tasks, sender, dedup, pub).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 sent 1 failed", stats)
	}

	// Only the successful user gets last_notification_sent_at stamped.
	if len(settings.notified) != 1 || settings.notified[0] != 2 {
		t.Fatalf("notified = %v, want [2]", settings.notified)
	}

	// The failed user's dedup slot is released so the next run retries.
	if len(dedup.released) != 1 {
		t.Fatalf("released = %v, want one key", dedup.released)
	}
}

func TestNotifierRunSkipsWhenAlreadySentToday(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	settings := &fakeSettingsStore{users: []model.NotificationSettings{
		{UserID: 1, Email: "anna@hc.example", Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{3}},
	}}
	tasks := &fakeTaskStore{tasks: []model.MaintenanceTask{
		{ID: 10, Title: "Adjust soundpost", Status: model.TaskStatusPending, DueDate: strPtr("2025-03-10")},
	}}
	sender := &fakeSender{}
	dedup := &fakeDedup{taken: map[string]bool{"digest:1:2025-03-10": true}}
	pub := &fakePublisher{}

	stats, err := newTestNotifier(settings, tasks, sender, dedup, pub).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Skipped != 1 || stats.Sent != 0 {
		t.Fatalf("stats = %+v, want 1 skipped 0 sent", stats)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent = %v, want none", sender.sent)
	}
}

func TestNotifierRunOmitsUsersWithEmptyDigest(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	settings := &fakeSettingsStore{users: []model.NotificationSettings{
		{UserID: 1, Email: "anna@hc.example", Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{1}},
	}}
	// Due far in the future, outside the 1-day window.
	tasks := &fakeTaskStore{tasks: []model.MaintenanceTask{
		{ID: 10, Title: "Varnish touch-up", Status: model.TaskStatusPending, DueDate: strPtr("2025-04-01")},
	}}
	sender := &fakeSender{}
	pub := &fakePublisher{}

	stats, err := newTestNotifier(settings, tasks, sender, &fakeDedup{}, pub).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Users != 0 || stats.Sent != 0 {
		t.Fatalf("stats = %+v, want no digests", stats)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent = %v, want none", sender.sent)
	}
}

func TestSweepOverduePublishesOnlyOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tasks := &fakeTaskStore{tasks: []model.MaintenanceTask{
		{ID: 1, Title: "Late job", Status: model.TaskStatusPending, DueDate: strPtr("2025-03-07")},
		{ID: 2, Title: "Today job", Status: model.TaskStatusPending, DueDate: strPtr("2025-03-10")},
		{ID: 3, Title: "Future job", Status: model.TaskStatusPending, DueDate: strPtr("2025-03-20")},
		{ID: 4, Title: "No date", Status: model.TaskStatusPending},
	}}
	pub := &fakePublisher{}

	n := newTestNotifier(&fakeSettingsStore{}, tasks, &fakeSender{}, &fakeDedup{}, pub)
	if err := n.SweepOverdue(context.Background(), now); err != nil {
		t.Fatalf("SweepOverdue returned error: %v", err)
	}

	if len(pub.keys) != 1 || pub.keys[0] != mq.RoutingKeyTaskOverdue {
		t.Fatalf("published keys = %v, want one task.overdue", pub.keys)
	}
}
