package productext

import (
	"context"
	"strings"

	"salbar-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idPrefix = "prodext_"

// Service manages the extension records linked to products.
type Service interface {
	CreateCustoms(ctx context.Context, in CreateInput) (*ProductExtension, error)
	DeleteCustoms(ctx context.Context, id string) error
	RestoreCustoms(ctx context.Context, id string) error
	RetrieveByProduct(ctx context.Context, productID string) (*ProductExtension, error)
}

type service struct {
	repo  Repository
	newID func() string
}

func NewService(repo Repository) Service {
	return &service{
		repo:  repo,
		newID: func() string { return idPrefix + uuid.NewString() },
	}
}

func (s *service) CreateCustoms(ctx context.Context, in CreateInput) (*ProductExtension, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateCustoms"),
		zap.String("product_id", in.ProductID),
	)

	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		log.Warn("missing product id")
		return nil, ErrProductIDRequired
	}
	name := strings.TrimSpace(in.CustomName)
	if name == "" {
		log.Warn("missing custom name")
		return nil, ErrCustomNameRequired
	}

	ext := &ProductExtension{
		ID:         s.newID(),
		ProductID:  productID,
		CustomName: name,
	}
	if err := s.repo.Create(ctx, ext); err != nil {
		log.Error("failed to create product extension", zap.Error(err))
		return nil, err
	}

	log.Info("product extension created", zap.String("extension_id", ext.ID))
	return ext, nil
}

func (s *service) DeleteCustoms(ctx context.Context, id string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteCustoms"),
		zap.String("extension_id", id),
	)
	if id == "" {
		return ErrExtensionIDRequired
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		log.Error("failed to delete product extension", zap.Error(err))
		return err
	}
	log.Info("product extension deleted")
	return nil
}

func (s *service) RestoreCustoms(ctx context.Context, id string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RestoreCustoms"),
		zap.String("extension_id", id),
	)
	if id == "" {
		return ErrExtensionIDRequired
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		log.Error("failed to restore product extension", zap.Error(err))
		return err
	}
	log.Info("product extension restored")
	return nil
}

// RetrieveByProduct returns the newest live extension of a product.
func (s *service) RetrieveByProduct(ctx context.Context, productID string) (*ProductExtension, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RetrieveByProduct"),
		zap.String("product_id", productID),
	)
	if productID == "" {
		return nil, ErrProductIDRequired
	}

	list, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		log.Error("failed to list product extensions", zap.Error(err))
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}
