package duedate

import (
	"testing"
	"time"

	"github.com/mjaychoi/hc-violins/internal/model"
)

func strPtr(s string) *string { return &s }

func TestParseCalendarDay_DateOnlyStableAcrossTimezones(t *testing.T) {
	zones := []*time.Location{
		time.FixedZone("UTC-11", -11*3600),
		time.FixedZone("UTC-5", -5*3600),
		time.UTC,
		time.FixedZone("UTC+9", 9*3600),
		time.FixedZone("UTC+14", 14*3600),
	}

	for _, loc := range zones {
		got, ok := ParseCalendarDay("2025-01-10", loc)
		if !ok {
			t.Fatalf("ParseCalendarDay failed in zone %v", loc)
		}
		if got.Year() != 2025 || got.Month() != time.January || got.Day() != 10 {
			t.Errorf("zone %v: got %v, want 2025-01-10", loc, got)
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Errorf("zone %v: expected local midnight, got %v", loc, got)
		}
	}
}

func TestParseCalendarDay_Timestamp(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)

	// 2025-01-11T02:00:00Z is still Jan 10 at UTC-8.
	got, ok := ParseCalendarDay("2025-01-11T02:00:00Z", loc)
	if !ok {
		t.Fatal("ParseCalendarDay failed for timestamp")
	}
	if got.Year() != 2025 || got.Month() != time.January || got.Day() != 10 {
		t.Errorf("got %v, want local calendar day 2025-01-10", got)
	}
}

func TestParseCalendarDay_Invalid(t *testing.T) {
	tests := []string{
		"",
		"not a date",
		"2025-13-01",
		"2025-02-31",
		"2025-01-00",
		"10/01/2025",
	}

	for _, s := range tests {
		if _, ok := ParseCalendarDay(s, time.UTC); ok {
			t.Errorf("ParseCalendarDay(%q) = ok, want invalid", s)
		}
	}
}

func TestResolve_Priority(t *testing.T) {
	task := &model.MaintenanceTask{
		Status:          model.TaskStatusPending,
		PersonalDueDate: strPtr("2025-01-10"),
		ScheduledDate:   strPtr("2025-01-01"),
	}

	due, ok := Resolve(task, time.UTC)
	if !ok {
		t.Fatal("Resolve returned no date")
	}
	if due.Day() != 10 {
		t.Errorf("Resolve picked day %d, want 10 (personal_due_date over scheduled_date)", due.Day())
	}

	task.DueDate = strPtr("2025-01-05")
	due, _ = Resolve(task, time.UTC)
	if due.Day() != 5 {
		t.Errorf("Resolve picked day %d, want 5 (due_date wins)", due.Day())
	}
}

func TestResolve_MalformedPrimaryDoesNotCascade(t *testing.T) {
	task := &model.MaintenanceTask{
		Status:        model.TaskStatusPending,
		DueDate:       strPtr("garbage"),
		ScheduledDate: strPtr("2025-01-01"),
	}

	if _, ok := Resolve(task, time.UTC); ok {
		t.Error("Resolve cascaded past a malformed primary field, want no date")
	}
}

func TestResolve_NoDates(t *testing.T) {
	task := &model.MaintenanceTask{Status: model.TaskStatusPending}
	if _, ok := Resolve(task, time.UTC); ok {
		t.Error("Resolve returned a date for a task with none set")
	}
}

func TestClassify(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)

	tests := []struct {
		name       string
		task       model.MaintenanceTask
		now        time.Time
		window     int
		wantStatus Status
		wantDays   int
	}{
		{
			name:       "due today at end of day is still today",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending, DueDate: strPtr("2025-01-10")},
			now:        time.Date(2025, 1, 10, 23, 59, 59, 0, loc),
			window:     3,
			wantStatus: StatusToday,
			wantDays:   0,
		},
		{
			name:       "overdue just after midnight",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending, DueDate: strPtr("2025-01-10")},
			now:        time.Date(2025, 1, 11, 0, 0, 1, 0, loc),
			window:     3,
			wantStatus: StatusOverdue,
			wantDays:   1,
		},
		{
			name:       "overdue counts elapsed days",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending, DueDate: strPtr("2025-01-03")},
			now:        time.Date(2025, 1, 10, 9, 0, 0, 0, loc),
			window:     3,
			wantStatus: StatusOverdue,
			wantDays:   7,
		},
		{
			name:       "upcoming within window",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending, DueDate: strPtr("2025-01-10")},
			now:        time.Date(2025, 1, 8, 12, 0, 0, 0, loc),
			window:     3,
			wantStatus: StatusUpcoming,
			wantDays:   2,
		},
		{
			name:       "beyond window is normal",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending, DueDate: strPtr("2025-01-20")},
			now:        time.Date(2025, 1, 8, 12, 0, 0, 0, loc),
			window:     3,
			wantStatus: StatusNormal,
			wantDays:   0,
		},
		{
			name:       "completed never alerts",
			task:       model.MaintenanceTask{Status: model.TaskStatusCompleted, DueDate: strPtr("2020-01-01")},
			now:        time.Date(2025, 1, 10, 12, 0, 0, 0, loc),
			window:     3,
			wantStatus: StatusNormal,
			wantDays:   0,
		},
		{
			name:       "cancelled never alerts",
			task:       model.MaintenanceTask{Status: model.TaskStatusCancelled, DueDate: strPtr("2020-01-01")},
			now:        time.Date(2025, 1, 10, 12, 0, 0, 0, loc),
			window:     3,
			wantStatus: StatusNormal,
			wantDays:   0,
		},
		{
			name:       "no date is normal",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending},
			now:        time.Date(2025, 1, 10, 12, 0, 0, 0, loc),
			window:     3,
			wantStatus: StatusNormal,
			wantDays:   0,
		},
		{
			name:       "wider window includes later tasks",
			task:       model.MaintenanceTask{Status: model.TaskStatusPending, DueDate: strPtr("2025-01-15")},
			now:        time.Date(2025, 1, 8, 12, 0, 0, 0, loc),
			window:     7,
			wantStatus: StatusUpcoming,
			wantDays:   7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(&tt.task, tt.now, tt.window)
			if got.Status != tt.wantStatus || got.Days != tt.wantDays {
				t.Errorf("Classify() = {%s %d}, want {%s %d}",
					got.Status, got.Days, tt.wantStatus, tt.wantDays)
			}
		})
	}
}

func TestClassify_DSTTransition(t *testing.T) {
	// America/New_York springs forward on 2025-03-09: the span from Mar 8
	// to Mar 10 is 47 hours, but still exactly two calendar days.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	task := &model.MaintenanceTask{
		Status:  model.TaskStatusPending,
		DueDate: strPtr("2025-03-10"),
	}
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, loc)

	got := Classify(task, now, 3)
	if got.Status != StatusUpcoming || got.Days != 2 {
		t.Errorf("Classify() across DST = {%s %d}, want {upcoming 2}", got.Status, got.Days)
	}
}
