package repository

import (
	"context"

	"diagram2code/internal/domain/entity"
)

// DeploymentRepository stores stack submission records.
type DeploymentRepository interface {
	Create(ctx context.Context, d *entity.Deployment) error
	Update(ctx context.Context, d *entity.Deployment) error
	ListByConversion(ctx context.Context, conversionID string) ([]*entity.Deployment, error)
	DeleteByConversion(ctx context.Context, conversionID string) error
}

// ArtifactStore keeps the files a conversion produced on local disk.
type ArtifactStore interface {
	Save(ctx context.Context, c *entity.Conversion, payload entity.EncodedPayload) error
	Delete(ctx context.Context, conversionID string) error
}

// EventPublisher receives state transitions.
type EventPublisher interface {
	Publish(event entity.StateEvent)
}
