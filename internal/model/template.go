package model

import "time"

// Message template channels.
const (
	TemplateChannelEmail = "email"
	TemplateChannelSMS   = "sms"
)

// MessageTemplate is a reusable email or SMS body in Go text/template
// syntax, rendered against a client/task context before sending.
type MessageTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
