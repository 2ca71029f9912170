package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

type DeploymentUseCase interface {
	DeployTemplate(ctx context.Context, template string) (*entity.Deployment, error)
	DeployConversion(ctx context.Context, conversionID string) (*entity.Deployment, error)
	ListDeployments(ctx context.Context, conversionID string) ([]*entity.Deployment, error)
}

type DeploymentService struct {
	provisioner repository.StackProvisioner
	conversions repository.ConversionRepository
	deployments repository.DeploymentRepository
	namer       *StackNamer
	events      repository.EventPublisher
	logger      *slog.Logger
	timeout     time.Duration
}

var _ DeploymentUseCase = (*DeploymentService)(nil)

func NewDeploymentService(
	p repository.StackProvisioner,
	cr repository.ConversionRepository,
	dr repository.DeploymentRepository,
	namer *StackNamer,
	events repository.EventPublisher,
	logger *slog.Logger,
	timeout time.Duration,
) *DeploymentService {
	if namer == nil {
		namer = NewStackNamer(DefaultStackPrefix, DefaultStackModelTag)
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &DeploymentService{
		provisioner: p,
		conversions: cr,
		deployments: dr,
		namer:       namer,
		events:      events,
		logger:      logger,
		timeout:     timeout,
	}
}

// DeployTemplate submits a template that is not attached to a stored conversion.
func (s *DeploymentService) DeployTemplate(ctx context.Context, template string) (*entity.Deployment, error) {
	return s.deploy(ctx, "", template)
}

// DeployConversion submits the conversion's current template, including user edits.
func (s *DeploymentService) DeployConversion(ctx context.Context, conversionID string) (*entity.Deployment, error) {
	c, err := s.conversions.GetByID(ctx, conversionID)
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	return s.deploy(ctx, c.ID, c.TemplateText())
}

func (s *DeploymentService) ListDeployments(ctx context.Context, conversionID string) ([]*entity.Deployment, error) {
	list, err := s.deployments.ListByConversion(ctx, conversionID)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	return list, nil
}

// deploy makes exactly one CreateStack call under a fresh stack name. Nothing is
// retried; a repeated deploy produces a new name and a new stack.
func (s *DeploymentService) deploy(parent context.Context, conversionID, template string) (*entity.Deployment, error) {
	metrics.IncDeployRequest()

	if strings.TrimSpace(template) == "" {
		metrics.IncStackSubmission("refused")
		s.logger.Warn("deploy refused: no template", "conversion_id", conversionID)
		return nil, fmt.Errorf("deploy: %w", entity.ErrEmptyTemplate)
	}

	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}
	storeCtx := context.WithoutCancel(parent)

	d := entity.NewDeployment(conversionID)
	d.StackName = s.namer.Next()
	if err := s.deployments.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create deployment record: %w", err)
	}

	s.transition(storeCtx, d, entity.DeploymentSubmitting)
	s.logger.Info("submitting stack", "conversion_id", conversionID, "stack_name", d.StackName)

	stackID, err := s.provisioner.CreateStack(ctx, entity.NewStackRequest(d.StackName, template))
	if err != nil {
		d.Error = err.Error()
		var provErr *entity.ProvisioningError
		if errors.As(err, &provErr) {
			d.ErrorCode = provErr.Code
		}
		s.transition(storeCtx, d, entity.DeploymentFailed)
		metrics.IncStackSubmission("failed")
		s.logger.Error("stack submission failed",
			"conversion_id", conversionID,
			"stack_name", d.StackName,
			"code", d.ErrorCode,
			"err", err,
		)
		return d, err
	}

	d.StackID = stackID
	s.transition(storeCtx, d, entity.DeploymentSucceeded)
	metrics.IncStackSubmission("succeeded")
	s.logger.Info("stack creation initiated", "stack_name", d.StackName, "stack_id", stackID)
	return d, nil
}

func (s *DeploymentService) transition(ctx context.Context, d *entity.Deployment, state entity.DeploymentState) {
	d.SetState(state)
	if err := s.deployments.Update(ctx, d); err != nil {
		metrics.IncError("deployment", "update_state")
		s.logger.Warn("failed to persist deployment state", "deployment_id", d.ID, "state", state, "err", err)
	}
	s.events.Publish(entity.StateEvent{
		Kind:      entity.EventDeployment,
		ID:        d.ID,
		State:     string(state),
		Error:     d.Error,
		Timestamp: time.Now().UTC(),
	})
}
