package model

import "time"

type Sale struct {
	ID            int64     `json:"id"`
	ClientID      int64     `json:"client_id"`
	InstrumentID  int64     `json:"instrument_id"`
	PriceCents    int64     `json:"price_cents"`
	PaymentMethod string    `json:"payment_method"`
	SoldAt        time.Time `json:"sold_at"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}
