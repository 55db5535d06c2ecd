package model

import "time"

// Invoice statuses.
const (
	InvoiceStatusDraft  = "draft"
	InvoiceStatusIssued = "issued"
	InvoiceStatusPaid   = "paid"
)

type Invoice struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	ClientID      int64         `json:"client_id"`
	SaleID        *int64        `json:"sale_id"`
	Status        string        `json:"status"`
	SubtotalCents int64         `json:"subtotal_cents"`
	TaxCents      int64         `json:"tax_cents"`
	TotalCents    int64         `json:"total_cents"`
	IssuedAt      *time.Time    `json:"issued_at"`
	CreatedAt     time.Time     `json:"created_at"`
	Lines         []InvoiceLine `json:"lines"`
}

type InvoiceLine struct {
	ID          int64  `json:"id"`
	InvoiceID   int64  `json:"invoice_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
}
