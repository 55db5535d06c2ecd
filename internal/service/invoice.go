package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
	"github.com/mjaychoi/hc-violins/pkg/metrics"
	"github.com/mjaychoi/hc-violins/pkg/mq"
	"github.com/mjaychoi/hc-violins/pkg/outbox"
)

// TaxRateBasisPoints is the sales tax applied to invoice subtotals,
// in basis points (850 = 8.5%).
const TaxRateBasisPoints = 850

// InvoiceService owns invoice numbering, totals and the issue transition.
type InvoiceService struct {
	invoices   *repository.InvoiceRepository
	clients    *repository.ClientRepository
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewInvoiceService(
	invoices *repository.InvoiceRepository,
	clients *repository.ClientRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoices:   invoices,
		clients:    clients,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// ComputeTotals fills subtotal, tax and total from the invoice lines.
// All arithmetic is integer cents; tax rounds half-down via truncation.
func ComputeTotals(inv *model.Invoice) {
	var subtotal int64
	for _, l := range inv.Lines {
		subtotal += int64(l.Quantity) * l.UnitCents
	}
	inv.SubtotalCents = subtotal
	inv.TaxCents = subtotal * TaxRateBasisPoints / 10000
	inv.TotalCents = inv.SubtotalCents + inv.TaxCents
}

// NewInvoiceNumber derives a short human-readable invoice number.
func NewInvoiceNumber() string {
	return "INV-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateDraft validates the lines, computes totals and stores the draft.
func (s *InvoiceService) CreateDraft(ctx context.Context, clientID int64, saleID *int64, lines []model.InvoiceLine) (*model.Invoice, error) {
	if len(lines) == 0 {
		return nil, apperr.New(apperr.KindValidation, "invoice needs at least one line")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.New(apperr.KindValidation, "line quantity must be positive")
		}
		if l.UnitCents < 0 {
			return nil, apperr.New(apperr.KindValidation, "line unit price cannot be negative")
		}
	}

	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, err
	}

	inv := &model.Invoice{
		Number:   NewInvoiceNumber(),
		ClientID: clientID,
		SaleID:   saleID,
		Status:   model.InvoiceStatusDraft,
		Lines:    lines,
	}
	ComputeTotals(inv)

	if err := s.invoices.InsertDraft(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Issue flips a draft to issued and records the invoice.issued event in the
// outbox inside the same transaction, so the event is published exactly
// when the status change is durable.
func (s *InvoiceService) Issue(ctx context.Context, id int64) (*model.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	issuedAt := time.Now()

	tx, err := s.invoices.Pool().Begin(ctx)
	if err != nil {
		return nil, apperr.FromDB("begin issue transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.invoices.MarkIssuedInTx(ctx, tx, id, issuedAt); err != nil {
		return nil, err
	}

	payload := mq.InvoiceIssuedPayload{
		InvoiceID:  inv.ID,
		Number:     inv.Number,
		ClientID:   inv.ClientID,
		TotalCents: inv.TotalCents,
		IssuedAt:   issuedAt,
	}
	aggID := inv.ID
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "invoice", &aggID, mq.RoutingKeyInvoiceIssued, payload); err != nil {
		s.logger.Error("Failed to insert invoice.issued to outbox", zap.Error(err))
		return nil, apperr.FromDB("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.FromDB("commit issue transaction", err)
	}

	metrics.InvoiceIssuedCount.Inc()
	s.logger.Info("Invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.String("number", inv.Number),
	)

	inv.Status = model.InvoiceStatusIssued
	inv.IssuedAt = &issuedAt
	return inv, nil
}

// Document is the render-ready payload handed to the external PDF
// service. This unit decides what appears on the invoice, not how it is
// drawn.
type Document struct {
	Invoice model.Invoice `json:"invoice"`
	Client  model.Client  `json:"client"`
}

// BuildDocument assembles the printable view of an invoice.
func (s *InvoiceService) BuildDocument(ctx context.Context, id int64) (*Document, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, err
	}
	return &Document{Invoice: *inv, Client: *client}, nil
}
