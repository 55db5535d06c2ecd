package model

import "time"

// Maintenance task statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// MaintenanceTask is a workshop job on an instrument: a rehair, setup,
// repair or appraisal. The three due-date fields are calendar dates stored
// as YYYY-MM-DD text; at most one is authoritative at a time, resolved by
// fixed priority (due_date, then personal_due_date, then scheduled_date).
type MaintenanceTask struct {
	ID           int64   `json:"id"`
	InstrumentID *int64  `json:"instrument_id"`
	ClientID     *int64  `json:"client_id"`
	AssignedTo   *int64  `json:"assigned_to"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	ReceivedDate *string `json:"received_date"`

	DueDate         *string `json:"due_date"`
	PersonalDueDate *string `json:"personal_due_date"`
	ScheduledDate   *string `json:"scheduled_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the task can still alert.
func (t *MaintenanceTask) IsOpen() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusInProgress
}
