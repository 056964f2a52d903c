package productext

import (
	"context"
	"database/sql"
	"errors"

	"salbar-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, e *ProductExtension) error
	GetByID(ctx context.Context, id string) (*ProductExtension, error)
	ListByProduct(ctx context.Context, productID string) ([]*ProductExtension, error)
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const columns = `id, product_id, custom_name, created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, e *ProductExtension) error {
	const q = `
	INSERT INTO product_extension (id, product_id, custom_name)
	VALUES ($1, $2, $3)
	RETURNING created_at, updated_at;
	`

	err := r.db.QueryRowContext(ctx, q, e.ID, e.ProductID, e.CustomName).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert product extension",
			zap.String("product_id", e.ProductID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*ProductExtension, error) {
	q := `SELECT ` + columns + ` FROM product_extension WHERE id = $1`

	var e ProductExtension
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.ProductID, &e.CustomName, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByProduct returns live extensions, newest first.
func (r *repository) ListByProduct(ctx context.Context, productID string) ([]*ProductExtension, error) {
	q := `
	SELECT ` + columns + `
	FROM product_extension
	WHERE product_id = $1 AND deleted_at IS NULL
	ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, q, productID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list product extensions", zap.String("product_id", productID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*ProductExtension
	for rows.Next() {
		var e ProductExtension
		if err := rows.Scan(&e.ID, &e.ProductID, &e.CustomName, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	const q = `
	UPDATE product_extension
	SET deleted_at = now(), updated_at = now()
	WHERE id = $1 AND deleted_at IS NULL;
	`
	return r.execOne(ctx, q, id)
}

func (r *repository) Restore(ctx context.Context, id string) error {
	const q = `
	UPDATE product_extension
	SET deleted_at = NULL, updated_at = now()
	WHERE id = $1 AND deleted_at IS NOT NULL;
	`
	return r.execOne(ctx, q, id)
}

func (r *repository) execOne(ctx context.Context, q, id string) error {
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
