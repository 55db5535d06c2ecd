package model

import "time"

// NotificationSettings controls the daily due-date digest for one user.
// DaysBeforeDue lists the "days until due" offsets that trigger an upcoming
// entry, e.g. [3, 1].
type NotificationSettings struct {
	UserID                 int64      `json:"user_id"`
	Email                  string     `json:"email"`
	Enabled                bool       `json:"enabled"`
	EmailNotifications     bool       `json:"email_notifications"`
	DaysBeforeDue          []int      `json:"days_before_due"`
	LastNotificationSentAt *time.Time `json:"last_notification_sent_at"`
}

// WantsDigest reports whether this user receives digest emails at all.
func (s *NotificationSettings) WantsDigest() bool {
	return s.Enabled && s.EmailNotifications
}

// MaxDaysBefore returns the widest upcoming window this user cares about.
func (s *NotificationSettings) MaxDaysBefore() int {
	max := 0
	for _, d := range s.DaysBeforeDue {
		if d > max {
			max = d
		}
	}
	return max
}
