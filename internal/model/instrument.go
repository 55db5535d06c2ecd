package model

import "time"

// Instrument kinds.
const (
	InstrumentKindViolin = "violin"
	InstrumentKindViola  = "viola"
	InstrumentKindCello  = "cello"
	InstrumentKindBass   = "bass"
	InstrumentKindBow    = "bow"
)

// Instrument statuses.
const (
	InstrumentStatusAvailable   = "available"
	InstrumentStatusReserved    = "reserved"
	InstrumentStatusSold        = "sold"
	InstrumentStatusConsignment = "consignment"
)

type Instrument struct {
	ID          int64     `json:"id"`
	InventoryNo string    `json:"inventory_no"`
	Kind        string    `json:"kind"`
	Maker       string    `json:"maker"`
	Year        *int      `json:"year"`
	PriceCents  int64     `json:"price_cents"`
	Status      string    `json:"status"`
	Condition   string    `json:"condition"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
