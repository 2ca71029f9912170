package provisioner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

// CreateStackAPI is the part of the CloudFormation client used here.
type CreateStackAPI interface {
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
}

type CloudFormationProvisioner struct {
	client CreateStackAPI
}

var _ repository.StackProvisioner = (*CloudFormationProvisioner)(nil)

func NewCloudFormationProvisioner(client CreateStackAPI) *CloudFormationProvisioner {
	return &CloudFormationProvisioner{client: client}
}

func (p *CloudFormationProvisioner) CreateStack(ctx context.Context, req entity.StackRequest) (string, error) {
	out, err := p.client.CreateStack(ctx, buildInput(req))
	if err != nil {
		code := errorCode(err)
		metrics.IncError("cloudformation", code)
		return "", &entity.ProvisioningError{StackName: req.StackName, Code: code, Err: err}
	}
	stackID := aws.ToString(out.StackId)
	if stackID == "" {
		metrics.IncError("cloudformation", "empty_stack_id")
		return "", &entity.ProvisioningError{
			StackName: req.StackName,
			Err:       fmt.Errorf("service returned no stack id"),
		}
	}
	return stackID, nil
}

func buildInput(req entity.StackRequest) *cloudformation.CreateStackInput {
	params := make([]types.Parameter, 0, len(req.Parameters))
	for _, p := range req.Parameters {
		params = append(params, types.Parameter{
			ParameterKey:   aws.String(p.Key),
			ParameterValue: aws.String(p.Value),
		})
	}

	caps := make([]types.Capability, 0, len(req.Capabilities))
	for _, c := range req.Capabilities {
		caps = append(caps, types.Capability(c))
	}

	return &cloudformation.CreateStackInput{
		StackName:    aws.String(req.StackName),
		TemplateBody: aws.String(req.TemplateBody),
		Parameters:   params,
		Capabilities: caps,
	}
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "unknown"
}
