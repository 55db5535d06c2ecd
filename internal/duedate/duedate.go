// Package duedate classifies maintenance tasks against their due dates.
// All arithmetic is calendar-day based: a date-only string names a whole
// local day, never a UTC instant, and day differences are computed on
// midnight anchors so DST transitions cannot skew the count.
package duedate

import (
	"regexp"
	"strconv"
	"time"

	"github.com/mjaychoi/hc-violins/internal/model"
)

// Status is the urgency bucket of a task relative to now.
type Status string

const (
	StatusOverdue  Status = "overdue"
	StatusToday    Status = "today"
	StatusUpcoming Status = "upcoming"
	StatusNormal   Status = "normal"
)

// DefaultUpcomingWindow is how many days ahead a task counts as upcoming
// for UI badges when no window is configured.
const DefaultUpcomingWindow = 3

// Classification is the derived, never-persisted result of classifying one
// task. Days is a non-negative magnitude; direction is implied by Status
// (overdue = days elapsed, upcoming = days remaining).
type Classification struct {
	Status Status `json:"status"`
	Days   int    `json:"days"`
}

var dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseCalendarDay turns a stored date string into the calendar day it
// names, as local midnight in loc. Date-only strings (YYYY-MM-DD) are taken
// apart by component so they are never shifted a day by a UTC
// interpretation. Anything else is parsed as an RFC 3339 instant and
// collapsed to its calendar day in loc. ok is false for empty or unparsable
// input; callers must treat that as "no date supplied", not as an error.
func ParseCalendarDay(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if dateOnlyRe.MatchString(s) {
		year, _ := strconv.Atoi(s[0:4])
		month, _ := strconv.Atoi(s[5:7])
		day, _ := strconv.Atoi(s[8:10])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		// time.Date normalizes out-of-range components (Feb 31 becomes
		// Mar 3); such strings are malformed, not a neighboring day.
		if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
			return time.Time{}, false
		}
		return d, true
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), true
}

// Resolve picks the single authoritative due date for a task: due_date,
// then personal_due_date, then scheduled_date, first non-empty wins. A
// malformed chosen field means "no date". There is no cascade to the next
// field, so a task with a corrupt primary date silently drops out of
// alerting rather than alerting on the wrong day.
func Resolve(t *model.MaintenanceTask, loc *time.Location) (time.Time, bool) {
	for _, field := range []*string{t.DueDate, t.PersonalDueDate, t.ScheduledDate} {
		if field == nil || *field == "" {
			continue
		}
		return ParseCalendarDay(*field, loc)
	}
	return time.Time{}, false
}

// Classify computes the urgency bucket of a task at the given moment.
// Completed and cancelled tasks never alert. A task due today stays "today"
// until its day has fully elapsed; it becomes overdue only strictly after
// 23:59:59.999 local. window bounds how far ahead "upcoming" reaches; pass
// DefaultUpcomingWindow for UI badges.
func Classify(t *model.MaintenanceTask, now time.Time, window int) Classification {
	if t.Status == model.TaskStatusCompleted || t.Status == model.TaskStatusCancelled {
		return Classification{Status: StatusNormal}
	}

	due, ok := Resolve(t, now.Location())
	if !ok {
		return Classification{Status: StatusNormal}
	}

	dueEndOfDay := time.Date(due.Year(), due.Month(), due.Day(),
		23, 59, 59, int(999*time.Millisecond), due.Location())
	if now.After(dueEndOfDay) {
		return Classification{Status: StatusOverdue, Days: calendarDaysBetween(due, now)}
	}

	diff := calendarDaysBetween(now, due)
	switch {
	case diff == 0:
		return Classification{Status: StatusToday}
	case diff >= 1 && diff <= window:
		return Classification{Status: StatusUpcoming, Days: diff}
	default:
		return Classification{Status: StatusNormal}
	}
}

// calendarDaysBetween returns the whole-day difference to's day minus
// from's day. Both days are re-anchored at UTC midnight so the subtraction
// is exact even when the span crosses a DST transition.
func calendarDaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
