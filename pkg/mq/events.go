package mq

import "time"

// Routing keys published on the events exchange.
const (
	RoutingKeyDigestSent    = "digest.sent"
	RoutingKeyInvoiceIssued = "invoice.issued"
	RoutingKeyTaskOverdue   = "task.overdue"
)

// DigestSentPayload is published after a digest email is delivered.
type DigestSentPayload struct {
	UserID   string    `json:"user_id"`
	Overdue  int       `json:"overdue"`
	Today    int       `json:"today"`
	Upcoming int       `json:"upcoming"`
	SentAt   time.Time `json:"sent_at"`
}

// InvoiceIssuedPayload is written to the outbox when an invoice is issued.
type InvoiceIssuedPayload struct {
	InvoiceID  int64     `json:"invoice_id"`
	Number     string    `json:"number"`
	ClientID   int64     `json:"client_id"`
	TotalCents int64     `json:"total_cents"`
	IssuedAt   time.Time `json:"issued_at"`
}

// TaskOverduePayload is published by the overdue sweep for each newly
// overdue maintenance task.
type TaskOverduePayload struct {
	TaskID int64  `json:"task_id"`
	Title  string `json:"title"`
	Days   int    `json:"days"`
}
