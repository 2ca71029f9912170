package repository

import (
	"context"

	"diagram2code/internal/domain/entity"
)

// StackProvisioner submits a template to a cloud provisioning service.
type StackProvisioner interface {
	// CreateStack returns the stack identifier assigned by the service.
	CreateStack(ctx context.Context, req entity.StackRequest) (string, error)
}
