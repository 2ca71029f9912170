package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"diagram2code/internal/domain/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEncoder struct {
	payload entity.EncodedPayload
	err     error
}

func (f *fakeEncoder) Encode(_ context.Context, img entity.UploadedImage) (entity.EncodedPayload, error) {
	if f.err != nil {
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: f.err}
	}
	return f.payload, nil
}

type fakeInterpreter struct {
	mu       sync.Mutex
	calls    []entity.InferenceStage
	payloads []entity.EncodedPayload

	description string
	template    string
	descErr     error
	tmplErr     error

	// hook runs inside each call before it returns
	hook func(stage entity.InferenceStage) error
}

func (f *fakeInterpreter) note(stage entity.InferenceStage, p entity.EncodedPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, stage)
	f.payloads = append(f.payloads, p)
}

func (f *fakeInterpreter) Describe(_ context.Context, p entity.EncodedPayload) (string, error) {
	f.note(entity.StageDescription, p)
	if f.hook != nil {
		if err := f.hook(entity.StageDescription); err != nil {
			return "", err
		}
	}
	if f.descErr != nil {
		return "", f.descErr
	}
	return f.description, nil
}

func (f *fakeInterpreter) GenerateTemplate(_ context.Context, p entity.EncodedPayload) (string, error) {
	f.note(entity.StageTemplate, p)
	if f.hook != nil {
		if err := f.hook(entity.StageTemplate); err != nil {
			return "", err
		}
	}
	if f.tmplErr != nil {
		return "", f.tmplErr
	}
	return f.template, nil
}

type fakeValidator struct {
	findings []*entity.ValidationFinding
	seen     []string
}

func (f *fakeValidator) Validate(template string) ([]*entity.ValidationFinding, error) {
	f.seen = append(f.seen, template)
	return f.findings, nil
}

type fakeArtifacts struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (f *fakeArtifacts) Save(_ context.Context, c *entity.Conversion, _ entity.EncodedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, c.ID)
	return nil
}

func (f *fakeArtifacts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.StateEvent
}

func (p *recordingPublisher) Publish(e entity.StateEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) states(kind entity.EventKind) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.Kind == kind {
			out = append(out, e.State)
		}
	}
	return out
}

type fakeProvisioner struct {
	mu       sync.Mutex
	requests []entity.StackRequest
	stackID  string
	err      error
}

func (f *fakeProvisioner) CreateStack(_ context.Context, req entity.StackRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.stackID, nil
}
