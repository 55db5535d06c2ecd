package digest

import (
	"reflect"
	"testing"
	"time"

	"github.com/mjaychoi/hc-violins/internal/model"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func openTask(id int64, due string) model.MaintenanceTask {
	return model.MaintenanceTask{
		ID:      id,
		Status:  model.TaskStatusPending,
		DueDate: strPtr(due),
	}
}

func TestBuild_ThresholdFilterAndOrdering(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{3, 1}},
	}
	tasks := []model.MaintenanceTask{
		openTask(101, "2025-01-13"), // in 3 days: wanted
		openTask(102, "2025-01-12"), // in 2 days: not wanted
		openTask(103, "2025-01-11"), // in 1 day: wanted
	}

	digests := Build(users, tasks, now)
	d, ok := digests[1]
	if !ok {
		t.Fatal("no digest built for user 1")
	}

	var ids []int64
	for _, e := range d.Upcoming {
		ids = append(ids, e.Task.ID)
	}
	// soonest first: the 1-day task before the 3-day task, 2-day excluded
	if !reflect.DeepEqual(ids, []int64{103, 101}) {
		t.Errorf("upcoming bucket = %v, want [103 101]", ids)
	}
}

func TestBuild_OverdueMostOverdueFirst(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{1}},
	}
	tasks := []model.MaintenanceTask{
		openTask(201, "2025-01-08"), // 2 days overdue
		openTask(202, "2025-01-03"), // 7 days overdue
		openTask(203, "2025-01-09"), // 1 day overdue
	}

	d := Build(users, tasks, now)[1]
	if d == nil {
		t.Fatal("no digest built")
	}

	var days []int
	for _, e := range d.Overdue {
		days = append(days, e.Days)
	}
	if !reflect.DeepEqual(days, []int{7, 2, 1}) {
		t.Errorf("overdue ordering = %v, want [7 2 1]", days)
	}
}

func TestBuild_TodayAlwaysIncluded(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: nil},
	}
	tasks := []model.MaintenanceTask{openTask(301, "2025-01-10")}

	d := Build(users, tasks, now)[1]
	if d == nil || len(d.Today) != 1 {
		t.Fatalf("today bucket missing, digest = %+v", d)
	}
}

func TestBuild_DisabledUsersSkipped(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	tasks := []model.MaintenanceTask{openTask(1, "2025-01-10")}

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: false, EmailNotifications: true},
		{UserID: 2, Enabled: true, EmailNotifications: false},
	}

	if got := Build(users, tasks, now); len(got) != 0 {
		t.Errorf("Build included disabled users: %v", got)
	}
}

func TestBuild_EmptyDigestOmitted(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{1}},
	}
	tasks := []model.MaintenanceTask{
		openTask(1, "2025-06-01"), // far future
		{ID: 2, Status: model.TaskStatusCompleted, DueDate: strPtr("2025-01-01")},
	}

	if got := Build(users, tasks, now); len(got) != 0 {
		t.Errorf("Build produced a digest with nothing to say: %v", got)
	}
}

func TestBuild_OwnershipFilter(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{1}},
		{UserID: 2, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{1}},
	}

	mine := openTask(401, "2025-01-10")
	mine.AssignedTo = i64Ptr(1)
	theirs := openTask(402, "2025-01-10")
	theirs.AssignedTo = i64Ptr(2)
	shared := openTask(403, "2025-01-10")

	tasks := []model.MaintenanceTask{mine, theirs, shared}

	digests := Build(users, tasks, now)
	if got := len(digests[1].Today); got != 2 {
		t.Errorf("user 1 sees %d tasks, want 2 (own + unassigned)", got)
	}
	if got := len(digests[2].Today); got != 2 {
		t.Errorf("user 2 sees %d tasks, want 2 (own + unassigned)", got)
	}
}

func TestBuild_WideThresholdBeyondDefaultWindow(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{7}},
	}
	tasks := []model.MaintenanceTask{openTask(501, "2025-01-17")}

	d := Build(users, tasks, now)[1]
	if d == nil || len(d.Upcoming) != 1 || d.Upcoming[0].Days != 7 {
		t.Fatalf("7-day threshold not honored, digest = %+v", d)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	users := []model.NotificationSettings{
		{UserID: 1, Enabled: true, EmailNotifications: true, DaysBeforeDue: []int{3, 1}},
	}
	tasks := []model.MaintenanceTask{
		openTask(1, "2025-01-08"),
		openTask(2, "2025-01-10"),
		openTask(3, "2025-01-11"),
		openTask(4, "2025-01-13"),
	}

	first := Build(users, tasks, now)
	second := Build(users, tasks, now)
	if !reflect.DeepEqual(first, second) {
		t.Error("Build is not idempotent for the same snapshot and now")
	}
}
