package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tokosnap-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, input NewProduct) (*Product, error)
	Update(ctx context.Context, id string, input UpdateProduct) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	query := `
		SELECT id, name, price, image, description, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Image, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *repository) List(ctx context.Context) ([]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListProducts"),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, image, description, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Image, &p.Description, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			log.Error("failed to scan product row", zap.Error(err))
			return nil, err
		}
		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *repository) Create(ctx context.Context, input NewProduct) (*Product, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO products (id, name, price, image, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, price, image, description, created_at, updated_at
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query,
		id, input.Name, input.Price, input.Image, input.Description,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return &p, nil
}

func (r *repository) Update(ctx context.Context, id string, input UpdateProduct) (*Product, error) {
	query := `
		UPDATE products
		SET
			name = COALESCE($2, name),
			price = COALESCE($3, price),
			image = COALESCE($4, image),
			description = COALESCE($5, description),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, price, image, description, created_at, updated_at
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query,
		id, input.Name, input.Price, input.Image, input.Description,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return &p, nil
}
