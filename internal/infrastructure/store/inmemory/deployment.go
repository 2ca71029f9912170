package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

type deploymentRepository struct {
	mu          sync.RWMutex
	deployments []*entity.Deployment
}

func NewDeploymentRepository() repository.DeploymentRepository {
	return &deploymentRepository{}
}

func (r *deploymentRepository) Create(_ context.Context, d *entity.Deployment) error {
	metrics.IncStoreOp(storeName, "put")
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *d
	r.deployments = append(r.deployments, &cp)
	return nil
}

func (r *deploymentRepository) Update(_ context.Context, d *entity.Deployment) error {
	metrics.IncStoreOp(storeName, "put")
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.deployments {
		if existing.ID == d.ID {
			d.UpdatedAt = time.Now()
			cp := *d
			r.deployments[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("deployment %s: %w", d.ID, entity.ErrNotFound)
}

// ListByConversion returns deployments in creation order.
func (r *deploymentRepository) ListByConversion(_ context.Context, conversionID string) ([]*entity.Deployment, error) {
	metrics.IncStoreOp(storeName, "list")
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entity.Deployment{}
	for _, d := range r.deployments {
		if d.ConversionID == conversionID {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *deploymentRepository) DeleteByConversion(_ context.Context, conversionID string) error {
	metrics.IncStoreOp(storeName, "delete")
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.deployments[:0]
	for _, d := range r.deployments {
		if d.ConversionID != conversionID {
			kept = append(kept, d)
		}
	}
	r.deployments = kept
	return nil
}
