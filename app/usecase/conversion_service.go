package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

var ErrConversionInProgress = errors.New("conversion is still in progress")

type ConversionUseCase interface {
	Convert(ctx context.Context, img entity.UploadedImage) (*entity.Conversion, error)
	Get(ctx context.Context, id string) (*entity.Conversion, error)
	List(ctx context.Context) ([]*entity.Conversion, error)
	UpdateTemplate(ctx context.Context, id, template string) (*entity.Conversion, error)
	Delete(ctx context.Context, id string) error
}

type ImageEncoder interface {
	Encode(ctx context.Context, img entity.UploadedImage) (entity.EncodedPayload, error)
}

type ConversionOptions struct {
	// Parallel issues the description and template calls concurrently.
	Parallel bool
	// Timeout bounds one whole conversion; zero means no extra bound.
	Timeout time.Duration
}

type ConversionService struct {
	encoder     ImageEncoder
	interpreter repository.DiagramInterpreter
	validator   repository.TemplateValidator
	conversions repository.ConversionRepository
	deployments repository.DeploymentRepository
	artifacts   repository.ArtifactStore
	events      repository.EventPublisher
	logger      *slog.Logger

	parallel bool
	timeout  time.Duration
}

var _ ConversionUseCase = (*ConversionService)(nil)

func NewConversionService(
	enc ImageEncoder,
	interpreter repository.DiagramInterpreter,
	v repository.TemplateValidator,
	cr repository.ConversionRepository,
	dr repository.DeploymentRepository,
	artifacts repository.ArtifactStore,
	events repository.EventPublisher,
	logger *slog.Logger,
	opts ConversionOptions,
) *ConversionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ConversionService{
		encoder:     enc,
		interpreter: interpreter,
		validator:   v,
		conversions: cr,
		deployments: dr,
		artifacts:   artifacts,
		events:      events,
		logger:      logger,
		parallel:    opts.Parallel,
		timeout:     opts.Timeout,
	}
}

// Convert encodes the image and asks the model for a description and a template.
//
// The returned conversion is never nil once the record was created. Stage failures do
// not roll back sibling results: the conversion is Ready whenever a template was
// produced, and the returned error joins every stage error so callers can decide how to
// report a partial result.
func (s *ConversionService) Convert(parent context.Context, img entity.UploadedImage) (*entity.Conversion, error) {
	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}
	// bookkeeping still has to land after a timeout
	storeCtx := context.WithoutCancel(parent)

	start := time.Now()
	c := entity.NewConversion(img.Name)
	if err := s.conversions.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create conversion: %w", err)
	}
	metrics.IncConversionStarted()
	s.logger.Info("conversion started", "conversion_id", c.ID, "image", img.Name)

	s.transition(storeCtx, c, entity.ConversionEncoding)
	payload, err := s.encoder.Encode(ctx, img)
	if err != nil {
		c.Error = err.Error()
		s.logger.Error("image encoding failed", "conversion_id", c.ID, "err", err)
		s.finish(storeCtx, c, start, payload)
		return c, err
	}
	c.MediaType = payload.MediaType
	c.ImageSize = payload.Size

	var errs stageErrors
	if s.parallel {
		errs = s.inferParallel(ctx, storeCtx, c, payload)
	} else {
		errs = s.inferSequential(ctx, storeCtx, c, payload)
	}
	descErr, tmplErr := errs.description, errs.template

	if descErr != nil {
		s.logger.Error("description failed", "conversion_id", c.ID, "err", descErr)
	}
	if tmplErr != nil {
		s.logger.Error("template generation failed", "conversion_id", c.ID, "err", tmplErr)
		c.Error = tmplErr.Error()
	} else {
		c.Findings = s.validate(c.ID, c.TemplateText())
	}

	s.finish(storeCtx, c, start, payload)
	return c, errors.Join(descErr, tmplErr)
}

type stageErrors struct {
	description error
	template    error
}

func (s *ConversionService) inferSequential(ctx, storeCtx context.Context, c *entity.Conversion, payload entity.EncodedPayload) stageErrors {
	var errs stageErrors

	s.transition(storeCtx, c, entity.ConversionAwaitingDescription)
	errs.description = record(&c.Description, func() (string, error) {
		return s.interpreter.Describe(ctx, payload)
	})

	s.transition(storeCtx, c, entity.ConversionAwaitingTemplate)
	errs.template = record(&c.Template, func() (string, error) {
		return s.interpreter.GenerateTemplate(ctx, payload)
	})
	return errs
}

// inferParallel runs both calls at once. Each goroutine owns one result, and every
// write to c happens under mu because transitions persist a copy of c.
func (s *ConversionService) inferParallel(ctx, storeCtx context.Context, c *entity.Conversion, payload entity.EncodedPayload) stageErrors {
	var (
		mu           sync.Mutex
		errs         stageErrors
		templateDone bool
		g            errgroup.Group
	)

	s.transition(storeCtx, c, entity.ConversionAwaitingDescription)

	g.Go(func() error {
		text, err := s.interpreter.Describe(ctx, payload)
		mu.Lock()
		defer mu.Unlock()
		errs.description = store(&c.Description, text, err)
		if !templateDone {
			s.transition(storeCtx, c, entity.ConversionAwaitingTemplate)
		}
		return nil
	})
	g.Go(func() error {
		text, err := s.interpreter.GenerateTemplate(ctx, payload)
		mu.Lock()
		defer mu.Unlock()
		errs.template = store(&c.Template, text, err)
		templateDone = true
		return nil
	})

	// goroutines report through errs, never through Wait
	_ = g.Wait()
	return errs
}

func record(res *entity.InferenceResult, call func() (string, error)) error {
	text, err := call()
	return store(res, text, err)
}

func store(res *entity.InferenceResult, text string, err error) error {
	if err != nil {
		res.Fail(err)
		return err
	}
	res.Succeed(text)
	return nil
}

func (s *ConversionService) validate(conversionID, template string) []*entity.ValidationFinding {
	if s.validator == nil || template == "" {
		return nil
	}
	findings, err := s.validator.Validate(template)
	if err != nil {
		s.logger.Warn("template validation failed", "conversion_id", conversionID, "err", err)
		return nil
	}
	if len(findings) > 0 {
		s.logger.Info("template has findings", "conversion_id", conversionID, "count", len(findings))
	}
	return findings
}

func (s *ConversionService) finish(ctx context.Context, c *entity.Conversion, start time.Time, payload entity.EncodedPayload) {
	final := entity.ConversionFailed
	if c.Template.Completed {
		final = entity.ConversionReady
	}
	s.transition(ctx, c, final)

	if s.artifacts != nil && (c.Template.Completed || c.Description.Completed) {
		if err := s.artifacts.Save(ctx, c, payload); err != nil {
			metrics.IncError("conversion", "save_artifacts")
			s.logger.Warn("save artifacts failed", "conversion_id", c.ID, "err", err)
		}
	}

	metrics.IncConversionFinished(string(final))
	metrics.ObserveConversionDuration(time.Since(start))
	s.logger.Info("conversion finished",
		"conversion_id", c.ID,
		"state", final,
		"description_ok", c.Description.Completed,
		"template_ok", c.Template.Completed,
		"duration", time.Since(start),
	)
}

// transition moves c to state, persists it and publishes the change. Persistence
// failures are logged; the in-memory result is still returned to the caller.
func (s *ConversionService) transition(ctx context.Context, c *entity.Conversion, state entity.ConversionState) {
	c.SetState(state)
	if err := s.conversions.Update(ctx, c); err != nil {
		metrics.IncError("conversion", "update_state")
		s.logger.Warn("failed to persist conversion state", "conversion_id", c.ID, "state", state, "err", err)
	}
	s.events.Publish(entity.StateEvent{
		Kind:      entity.EventConversion,
		ID:        c.ID,
		State:     string(state),
		Error:     c.Error,
		Timestamp: time.Now().UTC(),
	})
}

func (s *ConversionService) Get(ctx context.Context, id string) (*entity.Conversion, error) {
	c, err := s.conversions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	return c, nil
}

func (s *ConversionService) List(ctx context.Context) ([]*entity.Conversion, error) {
	list, err := s.conversions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return list, nil
}

// UpdateTemplate stores a hand-edited template. An empty template is accepted here;
// the deploy path refuses it.
func (s *ConversionService) UpdateTemplate(ctx context.Context, id, template string) (*entity.Conversion, error) {
	c, err := s.conversions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	if !c.State.IsTerminal() {
		return nil, fmt.Errorf("edit template of %s: %w", id, ErrConversionInProgress)
	}

	c.EditTemplate(template)
	c.Findings = s.validate(c.ID, template)
	state := c.State
	if c.HasTemplate() && state == entity.ConversionFailed {
		state = entity.ConversionReady
		c.Error = ""
	}
	s.transition(ctx, c, state)

	if s.artifacts != nil {
		if err := s.artifacts.Save(ctx, c, entity.EncodedPayload{}); err != nil {
			metrics.IncError("conversion", "save_artifacts")
			s.logger.Warn("save artifacts failed", "conversion_id", c.ID, "err", err)
		}
	}

	s.logger.Info("template edited", "conversion_id", c.ID, "bytes", len(template))
	return c, nil
}

func (s *ConversionService) Delete(ctx context.Context, id string) error {
	c, err := s.conversions.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get conversion: %w", err)
	}
	if !c.State.IsTerminal() {
		return fmt.Errorf("delete %s: %w", id, ErrConversionInProgress)
	}
	if s.deployments != nil {
		if err := s.deployments.DeleteByConversion(ctx, id); err != nil {
			return fmt.Errorf("delete deployments: %w", err)
		}
	}
	if s.artifacts != nil {
		if err := s.artifacts.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete artifacts: %w", err)
		}
	}
	if err := s.conversions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete conversion: %w", err)
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(entity.StateEvent) {}
