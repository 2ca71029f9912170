package repository

import (
	"context"

	"diagram2code/internal/domain/entity"
)

// DiagramInterpreter turns an encoded diagram image into text through a multimodal model.
type DiagramInterpreter interface {
	// Describe returns a prose description of the diagram.
	Describe(ctx context.Context, payload entity.EncodedPayload) (string, error)
	// GenerateTemplate returns an infrastructure template for the diagram.
	GenerateTemplate(ctx context.Context, payload entity.EncodedPayload) (string, error)
}
