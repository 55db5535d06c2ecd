package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

type ClientRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewClientRepository(db *pgxpool.Pool, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{db: db, logger: logger}
}

func (r *ClientRepository) Insert(ctx context.Context, c *model.Client) error {
	query := `
        INSERT INTO clients (name, email, phone, notes)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, c.Name, c.Email, c.Phone, c.Notes).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert client", zap.Error(err))
		return apperr.FromDB("insert client", err)
	}
	r.logger.Info("Client inserted successfully", zap.Int64("client_id", c.ID))
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	query := `
        SELECT id, name, email, phone, notes, created_at, updated_at
        FROM clients
        WHERE id = $1
    `
	var c model.Client
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.FromDB("get client", err)
	}
	return &c, nil
}

// List returns clients, optionally filtered by a case-insensitive search
// over name and email.
func (r *ClientRepository) List(ctx context.Context, search string, limit, offset int) ([]model.Client, error) {
	query := `
        SELECT id, name, email, phone, notes, created_at, updated_at
        FROM clients
        WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
        ORDER BY name ASC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, apperr.FromDB("list clients", err)
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.FromDB("scan client row", err)
		}
		clients = append(clients, c)
	}
	return clients, apperr.FromDB("list clients", rows.Err())
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) error {
	query := `
        UPDATE clients
        SET name = $1, email = $2, phone = $3, notes = $4, updated_at = NOW()
        WHERE id = $5
    `
	tag, err := r.db.Exec(ctx, query, c.Name, c.Email, c.Phone, c.Notes, c.ID)
	if err != nil {
		return apperr.FromDB("update client", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "client not found")
	}
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB("delete client", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "client not found")
	}
	return nil
}
