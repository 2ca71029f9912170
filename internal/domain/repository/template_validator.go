package repository

import "diagram2code/internal/domain/entity"

// TemplateValidator checks generated template text without contacting any service.
type TemplateValidator interface {
	Validate(template string) ([]*entity.ValidationFinding, error)
}
