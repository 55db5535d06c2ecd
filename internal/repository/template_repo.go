package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

type TemplateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTemplateRepository(db *pgxpool.Pool, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

func (r *TemplateRepository) Insert(ctx context.Context, t *model.MessageTemplate) error {
	query := `
        INSERT INTO message_templates (name, channel, subject, body)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, t.Name, t.Channel, t.Subject, t.Body).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert template", zap.Error(err), zap.String("name", t.Name))
		return apperr.FromDB("insert template", err)
	}
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*model.MessageTemplate, error) {
	query := `
        SELECT id, name, channel, subject, body, created_at, updated_at
        FROM message_templates
        WHERE id = $1
    `
	var t model.MessageTemplate
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Channel, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.FromDB("get template", err)
	}
	return &t, nil
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*model.MessageTemplate, error) {
	query := `
        SELECT id, name, channel, subject, body, created_at, updated_at
        FROM message_templates
        WHERE name = $1
    `
	var t model.MessageTemplate
	err := r.db.QueryRow(ctx, query, name).Scan(
		&t.ID, &t.Name, &t.Channel, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.FromDB("get template by name", err)
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context, channel string) ([]model.MessageTemplate, error) {
	query := `
        SELECT id, name, channel, subject, body, created_at, updated_at
        FROM message_templates
        WHERE ($1 = '' OR channel = $1)
        ORDER BY name ASC
    `
	rows, err := r.db.Query(ctx, query, channel)
	if err != nil {
		return nil, apperr.FromDB("list templates", err)
	}
	defer rows.Close()

	templates := []model.MessageTemplate{}
	for rows.Next() {
		var t model.MessageTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Channel, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperr.FromDB("scan template row", err)
		}
		templates = append(templates, t)
	}
	return templates, apperr.FromDB("list templates", rows.Err())
}

func (r *TemplateRepository) Update(ctx context.Context, t *model.MessageTemplate) error {
	query := `
        UPDATE message_templates
        SET name = $1, channel = $2, subject = $3, body = $4, updated_at = NOW()
        WHERE id = $5
    `
	tag, err := r.db.Exec(ctx, query, t.Name, t.Channel, t.Subject, t.Body, t.ID)
	if err != nil {
		return apperr.FromDB("update template", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "template not found")
	}
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM message_templates WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB("delete template", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "template not found")
	}
	return nil
}
