package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

const storeName = "inmemory"

// conversionRepository keeps copies so callers never share records with the store.
type conversionRepository struct {
	mu          sync.RWMutex
	conversions map[string]*entity.Conversion
}

func NewConversionRepository() repository.ConversionRepository {
	return &conversionRepository{conversions: make(map[string]*entity.Conversion)}
}

func (r *conversionRepository) Create(_ context.Context, c *entity.Conversion) error {
	metrics.IncStoreOp(storeName, "put")
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversions[c.ID]; ok {
		return fmt.Errorf("conversion %s already exists", c.ID)
	}
	r.conversions[c.ID] = copyConversion(c)
	return nil
}

func (r *conversionRepository) GetByID(_ context.Context, id string) (*entity.Conversion, error) {
	metrics.IncStoreOp(storeName, "get")
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversions[id]
	if !ok {
		return nil, fmt.Errorf("conversion %s: %w", id, entity.ErrNotFound)
	}
	return copyConversion(c), nil
}

func (r *conversionRepository) List(_ context.Context) ([]*entity.Conversion, error) {
	metrics.IncStoreOp(storeName, "list")
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Conversion, 0, len(r.conversions))
	for _, c := range r.conversions {
		result = append(result, copyConversion(c))
	}
	// newest first
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *conversionRepository) Update(_ context.Context, c *entity.Conversion) error {
	metrics.IncStoreOp(storeName, "put")
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversions[c.ID]; !ok {
		return fmt.Errorf("conversion %s: %w", c.ID, entity.ErrNotFound)
	}
	c.UpdatedAt = time.Now()
	r.conversions[c.ID] = copyConversion(c)
	return nil
}

func (r *conversionRepository) Delete(_ context.Context, id string) error {
	metrics.IncStoreOp(storeName, "delete")
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversions[id]; !ok {
		return fmt.Errorf("conversion %s: %w", id, entity.ErrNotFound)
	}
	delete(r.conversions, id)
	return nil
}

func copyConversion(c *entity.Conversion) *entity.Conversion {
	cp := *c
	if c.Findings != nil {
		cp.Findings = make([]*entity.ValidationFinding, len(c.Findings))
		for i, f := range c.Findings {
			fc := *f
			cp.Findings[i] = &fc
		}
	}
	return &cp
}
