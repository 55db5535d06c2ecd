package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

type InvoiceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInvoiceRepository(db *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

// Pool exposes the underlying pool for services that coordinate an invoice
// write with an outbox insert in one transaction.
func (r *InvoiceRepository) Pool() *pgxpool.Pool { return r.db }

// InsertDraft writes the invoice header and its lines in one transaction.
func (r *InvoiceRepository) InsertDraft(ctx context.Context, inv *model.Invoice) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.FromDB("begin invoice transaction", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO invoices (number, client_id, sale_id, status, subtotal_cents, tax_cents, total_cents)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err = tx.QueryRow(ctx, query,
		inv.Number, inv.ClientID, inv.SaleID, inv.Status,
		inv.SubtotalCents, inv.TaxCents, inv.TotalCents,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert invoice", zap.Error(err))
		return apperr.FromDB("insert invoice", err)
	}

	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.InvoiceID = inv.ID
		err = tx.QueryRow(ctx, `
            INSERT INTO invoice_lines (invoice_id, description, quantity, unit_cents)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `, line.InvoiceID, line.Description, line.Quantity, line.UnitCents).Scan(&line.ID)
		if err != nil {
			return apperr.FromDB("insert invoice line", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.FromDB("commit invoice transaction", err)
	}

	r.logger.Info("Invoice draft created",
		zap.Int64("invoice_id", inv.ID),
		zap.String("number", inv.Number),
	)
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*model.Invoice, error) {
	query := `
        SELECT id, number, client_id, sale_id, status, subtotal_cents, tax_cents,
               total_cents, issued_at, created_at
        FROM invoices
        WHERE id = $1
    `
	var inv model.Invoice
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.Number, &inv.ClientID, &inv.SaleID, &inv.Status,
		&inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents, &inv.IssuedAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, apperr.FromDB("get invoice", err)
	}

	rows, err := r.db.Query(ctx, `
        SELECT id, invoice_id, description, quantity, unit_cents
        FROM invoice_lines
        WHERE invoice_id = $1
        ORDER BY id ASC
    `, id)
	if err != nil {
		return nil, apperr.FromDB("get invoice lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitCents); err != nil {
			return nil, apperr.FromDB("scan invoice line", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromDB("get invoice lines", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]model.Invoice, error) {
	query := `
        SELECT id, number, client_id, sale_id, status, subtotal_cents, tax_cents,
               total_cents, issued_at, created_at
        FROM invoices
        WHERE client_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, apperr.FromDB("list invoices", err)
	}
	defer rows.Close()

	invoices := []model.Invoice{}
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.ClientID, &inv.SaleID, &inv.Status,
			&inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents, &inv.IssuedAt, &inv.CreatedAt,
		); err != nil {
			return nil, apperr.FromDB("scan invoice row", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, apperr.FromDB("list invoices", rows.Err())
}

// MarkIssuedInTx flips a draft to issued inside the caller's transaction so
// the status change commits together with the outbox event.
func (r *InvoiceRepository) MarkIssuedInTx(ctx context.Context, tx pgx.Tx, id int64, issuedAt time.Time) error {
	tag, err := tx.Exec(ctx, `
        UPDATE invoices
        SET status = $1, issued_at = $2
        WHERE id = $3 AND status = $4
    `, model.InvoiceStatusIssued, issuedAt, id, model.InvoiceStatusDraft)
	if err != nil {
		return apperr.FromDB("mark invoice issued", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindConflict, "invoice is not a draft")
	}
	return nil
}

func (r *InvoiceRepository) MarkPaid(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE invoices
        SET status = $1
        WHERE id = $2 AND status = $3
    `, model.InvoiceStatusPaid, id, model.InvoiceStatusIssued)
	if err != nil {
		return apperr.FromDB("mark invoice paid", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindConflict, "invoice is not issued")
	}
	return nil
}
