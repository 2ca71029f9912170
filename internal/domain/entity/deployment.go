package entity

import (
	"time"

	"github.com/google/uuid"
)

type DeploymentState string

const (
	DeploymentIdle       DeploymentState = "idle"
	DeploymentSubmitting DeploymentState = "submitting"
	DeploymentSucceeded  DeploymentState = "succeeded"
	DeploymentFailed     DeploymentState = "failed"
)

// StackCapabilities are acknowledged on every stack submission.
var StackCapabilities = []string{"CAPABILITY_IAM", "CAPABILITY_NAMED_IAM"}

type StackParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StackRequest is what gets sent to the provisioning service for one deploy.
type StackRequest struct {
	StackName    string
	TemplateBody string
	Parameters   []StackParameter
	Capabilities []string
}

func NewStackRequest(stackName, templateBody string) StackRequest {
	caps := make([]string, len(StackCapabilities))
	copy(caps, StackCapabilities)
	return StackRequest{
		StackName:    stackName,
		TemplateBody: templateBody,
		Parameters:   []StackParameter{},
		Capabilities: caps,
	}
}

type Deployment struct {
	ID           string          `json:"id" bson:"id"`
	ConversionID string          `json:"conversion_id,omitempty" bson:"conversion_id,omitempty"`
	StackName    string          `json:"stack_name" bson:"stack_name"`
	StackID      string          `json:"stack_id,omitempty" bson:"stack_id,omitempty"`
	State        DeploymentState `json:"state" bson:"state"`
	Error        string          `json:"error,omitempty" bson:"error,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty" bson:"error_code,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
}

func NewDeployment(conversionID string) *Deployment {
	now := time.Now()
	return &Deployment{
		ID:           uuid.New().String(),
		ConversionID: conversionID,
		State:        DeploymentIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (d *Deployment) SetState(state DeploymentState) {
	d.State = state
	d.UpdatedAt = time.Now()
}
