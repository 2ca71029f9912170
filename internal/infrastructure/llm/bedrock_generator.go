package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

const (
	DefaultModelID          = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultAnthropicVersion = "bedrock-2023-05-31"
	DefaultMaxTokens        = 1024
)

// InvokeModelAPI is the part of the Bedrock runtime client used here.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type BedrockOptions struct {
	ModelID          string
	AnthropicVersion string
	MaxTokens        int
	Language         string
}

type BedrockInterpreter struct {
	client           InvokeModelAPI
	modelID          string
	anthropicVersion string
	maxTokens        int
	describePrompt   entity.Prompt
	templatePrompt   entity.Prompt
}

var _ repository.DiagramInterpreter = (*BedrockInterpreter)(nil)

func NewBedrockInterpreter(client InvokeModelAPI, opts BedrockOptions) *BedrockInterpreter {
	if opts.ModelID == "" {
		opts.ModelID = DefaultModelID
	}
	if opts.AnthropicVersion == "" {
		opts.AnthropicVersion = DefaultAnthropicVersion
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &BedrockInterpreter{
		client:           client,
		modelID:          opts.ModelID,
		anthropicVersion: opts.AnthropicVersion,
		maxTokens:        opts.MaxTokens,
		describePrompt:   entity.DescriptionPrompt(opts.Language),
		templatePrompt:   entity.TemplatePrompt,
	}
}

func (g *BedrockInterpreter) Describe(ctx context.Context, payload entity.EncodedPayload) (string, error) {
	return g.invoke(ctx, entity.StageDescription, payload, g.describePrompt)
}

// GenerateTemplate returns the template with any surrounding markdown fence removed.
func (g *BedrockInterpreter) GenerateTemplate(ctx context.Context, payload entity.EncodedPayload) (string, error) {
	text, err := g.invoke(ctx, entity.StageTemplate, payload, g.templatePrompt)
	if err != nil {
		return "", err
	}
	return ExtractTemplate(text), nil
}

func (g *BedrockInterpreter) invoke(ctx context.Context, stage entity.InferenceStage, payload entity.EncodedPayload, prompt entity.Prompt) (string, error) {
	if payload.IsEmpty() {
		return "", entity.ErrEmptyPayload
	}

	metrics.IncInferenceRequest(g.modelID, string(stage))
	start := time.Now()
	defer func() {
		metrics.ObserveInferenceDuration(string(stage), time.Since(start))
	}()

	body, err := json.Marshal(g.buildRequest(payload, prompt))
	if err != nil {
		metrics.IncError("llm", "marshal_request")
		return "", &entity.InferenceError{Stage: stage, Err: fmt.Errorf("marshal request: %w", err)}
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		metrics.IncError("llm", "invoke_model")
		return "", &entity.InferenceError{Stage: stage, Err: fmt.Errorf("invoke model %s: %w", g.modelID, err)}
	}

	text, err := parseResponse(out.Body)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		return "", &entity.InferenceError{Stage: stage, Err: err}
	}
	return text, nil
}

func (g *BedrockInterpreter) buildRequest(payload entity.EncodedPayload, prompt entity.Prompt) invokeRequest {
	return invokeRequest{
		MaxTokens:        g.maxTokens,
		AnthropicVersion: g.anthropicVersion,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: payload.MediaType,
							Data:      payload.Data,
						},
					},
					{Type: "text", Text: prompt.Text},
				},
			},
		},
	}
}

func parseResponse(body []byte) (string, error) {
	var resp invokeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", entity.ErrEmptyContent
	}
	return resp.Content[0].Text, nil
}

// ExtractTemplate returns the body of the first fenced code block in content, or the
// trimmed content when there is no fence. Indentation inside the block is kept.
func ExtractTemplate(content string) string {
	lines := strings.Split(content, "\n")
	var body []string
	inBlock := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inBlock {
				return strings.Join(body, "\n")
			}
			inBlock = true
			continue
		}
		if inBlock {
			body = append(body, strings.TrimRight(line, "\r"))
		}
	}

	// unterminated fence: keep what followed it
	if inBlock {
		return strings.Join(body, "\n")
	}
	return strings.TrimSpace(content)
}
