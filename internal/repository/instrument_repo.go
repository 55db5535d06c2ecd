package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

type InstrumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInstrumentRepository(db *pgxpool.Pool, logger *zap.Logger) *InstrumentRepository {
	return &InstrumentRepository{db: db, logger: logger}
}

const instrumentColumns = `
	id, inventory_no, kind, maker, year, price_cents, status, condition, notes,
	created_at, updated_at
`

func scanInstrument(row interface{ Scan(dest ...any) error }, i *model.Instrument) error {
	return row.Scan(
		&i.ID,
		&i.InventoryNo,
		&i.Kind,
		&i.Maker,
		&i.Year,
		&i.PriceCents,
		&i.Status,
		&i.Condition,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

func (r *InstrumentRepository) Insert(ctx context.Context, i *model.Instrument) error {
	query := `
        INSERT INTO instruments
            (inventory_no, kind, maker, year, price_cents, status, condition, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		i.InventoryNo, i.Kind, i.Maker, i.Year, i.PriceCents, i.Status, i.Condition, i.Notes,
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert instrument",
			zap.Error(err),
			zap.String("inventory_no", i.InventoryNo),
		)
		return apperr.FromDB("insert instrument", err)
	}
	r.logger.Info("Instrument inserted successfully",
		zap.Int64("instrument_id", i.ID),
		zap.String("inventory_no", i.InventoryNo),
	)
	return nil
}

func (r *InstrumentRepository) GetByID(ctx context.Context, id int64) (*model.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = $1`

	var i model.Instrument
	if err := scanInstrument(r.db.QueryRow(ctx, query, id), &i); err != nil {
		return nil, apperr.FromDB("get instrument", err)
	}
	return &i, nil
}

// List returns instruments matching the optional kind and status filters.
// sortBy is whitelisted to known columns; anything else falls back to
// created_at.
func (r *InstrumentRepository) List(ctx context.Context, kind, status, sortBy string, limit, offset int) ([]model.Instrument, error) {
	orderCol := "created_at"
	switch sortBy {
	case "maker", "year", "price_cents", "inventory_no":
		orderCol = sortBy
	}

	query := fmt.Sprintf(`
        SELECT `+instrumentColumns+`
        FROM instruments
        WHERE ($1 = '' OR kind = $1)
        AND ($2 = '' OR status = $2)
        ORDER BY %s DESC
        LIMIT $3 OFFSET $4
    `, orderCol)

	rows, err := r.db.Query(ctx, query, kind, status, limit, offset)
	if err != nil {
		return nil, apperr.FromDB("list instruments", err)
	}
	defer rows.Close()

	instruments := []model.Instrument{}
	for rows.Next() {
		var i model.Instrument
		if err := scanInstrument(rows, &i); err != nil {
			return nil, apperr.FromDB("scan instrument row", err)
		}
		instruments = append(instruments, i)
	}
	return instruments, apperr.FromDB("list instruments", rows.Err())
}

func (r *InstrumentRepository) Update(ctx context.Context, i *model.Instrument) error {
	query := `
        UPDATE instruments
        SET inventory_no = $1, kind = $2, maker = $3, year = $4, price_cents = $5,
            status = $6, condition = $7, notes = $8, updated_at = NOW()
        WHERE id = $9
    `
	tag, err := r.db.Exec(ctx, query,
		i.InventoryNo, i.Kind, i.Maker, i.Year, i.PriceCents, i.Status, i.Condition, i.Notes, i.ID,
	)
	if err != nil {
		return apperr.FromDB("update instrument", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "instrument not found")
	}
	return nil
}

// MarkSoldInTx flips an instrument to sold inside the sale transaction.
func (r *InstrumentRepository) MarkSoldInTx(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `
        UPDATE instruments
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status <> $1
    `, model.InstrumentStatusSold, id)
	if err != nil {
		return apperr.FromDB("mark instrument sold", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindConflict, "instrument already sold or missing")
	}
	return nil
}

func (r *InstrumentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM instruments WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB("delete instrument", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "instrument not found")
	}
	return nil
}
