package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

type SaleRepository struct {
	db             *pgxpool.Pool
	instrumentRepo *InstrumentRepository
	logger         *zap.Logger
}

func NewSaleRepository(db *pgxpool.Pool, instrumentRepo *InstrumentRepository, logger *zap.Logger) *SaleRepository {
	return &SaleRepository{db: db, instrumentRepo: instrumentRepo, logger: logger}
}

// Insert records a sale and marks the instrument sold in one transaction.
func (r *SaleRepository) Insert(ctx context.Context, s *model.Sale) error {
	r.logger.Debug("Recording sale",
		zap.Int64("client_id", s.ClientID),
		zap.Int64("instrument_id", s.InstrumentID),
		zap.Int64("price_cents", s.PriceCents),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.FromDB("begin sale transaction", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO sales (client_id, instrument_id, price_cents, payment_method, sold_at, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err = tx.QueryRow(ctx, query,
		s.ClientID, s.InstrumentID, s.PriceCents, s.PaymentMethod, s.SoldAt, s.Notes,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert sale", zap.Error(err))
		return apperr.FromDB("insert sale", err)
	}

	if err := r.instrumentRepo.MarkSoldInTx(ctx, tx, s.InstrumentID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.FromDB("commit sale transaction", err)
	}

	r.logger.Info("Sale recorded successfully",
		zap.Int64("sale_id", s.ID),
		zap.Int64("instrument_id", s.InstrumentID),
	)
	return nil
}

func (r *SaleRepository) GetByID(ctx context.Context, id int64) (*model.Sale, error) {
	query := `
        SELECT id, client_id, instrument_id, price_cents, payment_method, sold_at, notes, created_at
        FROM sales
        WHERE id = $1
    `
	var s model.Sale
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.ClientID, &s.InstrumentID, &s.PriceCents, &s.PaymentMethod,
		&s.SoldAt, &s.Notes, &s.CreatedAt,
	)
	if err != nil {
		return nil, apperr.FromDB("get sale", err)
	}
	return &s, nil
}

// SaleFilter narrows the sales listing.
type SaleFilter struct {
	ClientID *int64
	From     *time.Time
	To       *time.Time
	SortBy   string // sold_at or price_cents
	Limit    int
	Offset   int
}

func (r *SaleRepository) List(ctx context.Context, f SaleFilter) ([]model.Sale, error) {
	orderCol := "sold_at"
	if f.SortBy == "price_cents" {
		orderCol = "price_cents"
	}

	query := fmt.Sprintf(`
        SELECT id, client_id, instrument_id, price_cents, payment_method, sold_at, notes, created_at
        FROM sales
        WHERE ($1::bigint IS NULL OR client_id = $1)
        AND ($2::timestamptz IS NULL OR sold_at >= $2)
        AND ($3::timestamptz IS NULL OR sold_at <= $3)
        ORDER BY %s DESC
        LIMIT $4 OFFSET $5
    `, orderCol)

	rows, err := r.db.Query(ctx, query, f.ClientID, f.From, f.To, f.Limit, f.Offset)
	if err != nil {
		return nil, apperr.FromDB("list sales", err)
	}
	defer rows.Close()

	sales := []model.Sale{}
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(
			&s.ID, &s.ClientID, &s.InstrumentID, &s.PriceCents, &s.PaymentMethod,
			&s.SoldAt, &s.Notes, &s.CreatedAt,
		); err != nil {
			return nil, apperr.FromDB("scan sale row", err)
		}
		sales = append(sales, s)
	}
	return sales, apperr.FromDB("list sales", rows.Err())
}
