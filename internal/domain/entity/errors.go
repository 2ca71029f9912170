package entity

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrUnsupportedMedia = errors.New("file is not a supported image")
	ErrEmptyPayload     = errors.New("encoded payload is empty")
	ErrEmptyContent     = errors.New("model response has no content")
	ErrEmptyTemplate    = errors.New("template is empty")
	ErrNotFound         = errors.New("not found")
)

// ReadError reports that an uploaded image could not be read or encoded.
type ReadError struct {
	File string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read image %q: %v", e.File, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// InferenceError reports a failed call to the generation service.
// Stage is the prompt kind that failed (description or template).
type InferenceError struct {
	Stage InferenceStage
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ProvisioningError reports a rejected or failed stack submission.
// Code carries the service error code when one was returned.
type ProvisioningError struct {
	StackName string
	Code      string
	Err       error
}

func (e *ProvisioningError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("create stack %s: %s: %v", e.StackName, e.Code, e.Err)
	}
	return fmt.Sprintf("create stack %s: %v", e.StackName, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
