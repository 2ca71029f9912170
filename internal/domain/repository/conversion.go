package repository

import (
	"context"

	"diagram2code/internal/domain/entity"
)

// ConversionRepository stores conversion records.
type ConversionRepository interface {
	Create(ctx context.Context, c *entity.Conversion) error
	GetByID(ctx context.Context, id string) (*entity.Conversion, error)
	List(ctx context.Context) ([]*entity.Conversion, error)
	Update(ctx context.Context, c *entity.Conversion) error
	Delete(ctx context.Context, id string) error
}
