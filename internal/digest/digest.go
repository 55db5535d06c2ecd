// Package digest assembles the per-user due-date digests for the daily
// notification run. Build is a pure function of its inputs and the given
// moment, so a batch re-run against the same snapshot produces identical
// digests.
package digest

import (
	"sort"
	"time"

	"github.com/mjaychoi/hc-violins/internal/duedate"
	"github.com/mjaychoi/hc-violins/internal/model"
)

// Entry is one task in a digest bucket together with its day offset.
type Entry struct {
	Task model.MaintenanceTask `json:"task"`
	Days int                   `json:"days"`
}

// Digest is the bundle of overdue/today/upcoming tasks for one user.
// Overdue is ordered most-overdue first, Upcoming soonest-due first.
type Digest struct {
	UserID   int64   `json:"user_id"`
	Overdue  []Entry `json:"overdue"`
	Today    []Entry `json:"today"`
	Upcoming []Entry `json:"upcoming"`
}

// IsEmpty reports whether the digest has nothing to say. Empty digests are
// never sent.
func (d *Digest) IsEmpty() bool {
	return len(d.Overdue) == 0 && len(d.Today) == 0 && len(d.Upcoming) == 0
}

// Build assembles a digest per subscribed user. Users whose notifications
// are disabled get no entry in the result, as do users whose digest would
// be empty. Tasks are visible to a user when assigned to them or
// unassigned. Overdue and today tasks are always included; upcoming tasks
// only when their day offset is one of the user's days_before_due values.
func Build(users []model.NotificationSettings, tasks []model.MaintenanceTask, now time.Time) map[int64]*Digest {
	out := make(map[int64]*Digest)

	for _, user := range users {
		if !user.WantsDigest() {
			continue
		}

		d := buildForUser(&user, tasks, now)
		if d.IsEmpty() {
			continue
		}
		out[user.UserID] = d
	}

	return out
}

func buildForUser(user *model.NotificationSettings, tasks []model.MaintenanceTask, now time.Time) *Digest {
	d := &Digest{UserID: user.UserID}

	// The upcoming window must reach the user's farthest threshold, or a
	// days_before_due of e.g. 7 could never match.
	window := user.MaxDaysBefore()
	if window < duedate.DefaultUpcomingWindow {
		window = duedate.DefaultUpcomingWindow
	}

	wanted := make(map[int]bool, len(user.DaysBeforeDue))
	for _, days := range user.DaysBeforeDue {
		wanted[days] = true
	}

	for _, task := range tasks {
		if !visibleTo(&task, user.UserID) {
			continue
		}

		c := duedate.Classify(&task, now, window)
		switch c.Status {
		case duedate.StatusOverdue:
			d.Overdue = append(d.Overdue, Entry{Task: task, Days: c.Days})
		case duedate.StatusToday:
			d.Today = append(d.Today, Entry{Task: task, Days: 0})
		case duedate.StatusUpcoming:
			if wanted[c.Days] {
				d.Upcoming = append(d.Upcoming, Entry{Task: task, Days: c.Days})
			}
		}
	}

	sort.SliceStable(d.Overdue, func(i, j int) bool {
		return d.Overdue[i].Days > d.Overdue[j].Days
	})
	sort.SliceStable(d.Upcoming, func(i, j int) bool {
		return d.Upcoming[i].Days < d.Upcoming[j].Days
	})

	return d
}

// visibleTo is the explicit ownership filter: a task belongs to its
// assignee, and unassigned tasks belong to everyone.
func visibleTo(t *model.MaintenanceTask, userID int64) bool {
	return t.AssignedTo == nil || *t.AssignedTo == userID
}
