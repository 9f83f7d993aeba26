package product

import (
	"context"
	"strings"

	"tokosnap-be/internal/logger"
	"tokosnap-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, input NewProduct) (*Product, error)
	Update(ctx context.Context, id string, input UpdateProduct) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, ErrProductNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

// Create is admin-only; catalog mutation is gated the same way as the
// authenticated copy of the original service.
func (s *service) Create(ctx context.Context, input NewProduct) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
	)

	if !utils.IsAdmin(ctx) {
		log.Warn("product create rejected: not admin")
		return nil, ErrUnauthorized
	}

	if strings.TrimSpace(input.Name) == "" || input.Price <= 0 {
		return nil, ErrInvalidProduct
	}

	p, err := s.repo.Create(ctx, input)
	if err != nil {
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	log.Info("product created",
		zap.String("product_id", p.ID),
		zap.Int64("price", p.Price),
	)

	return p, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateProduct) (*Product, error) {
	if !utils.IsAdmin(ctx) {
		return nil, ErrUnauthorized
	}

	if id == "" {
		return nil, ErrInvalidProduct
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrInvalidProduct
	}

	if input.Price != nil && *input.Price <= 0 {
		return nil, ErrInvalidProduct
	}

	if input.Name == nil && input.Price == nil && input.Image == nil && input.Description == nil {
		return nil, ErrInvalidProduct
	}

	return s.repo.Update(ctx, id, input)
}
