package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	for _, key := range []string{"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "us-west-2", cfg.BedrockRegion())
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", cfg.Bedrock.ModelID)
	assert.Equal(t, 1024, cfg.Bedrock.MaxTokens)
	assert.Equal(t, "French", cfg.Bedrock.Language)
	assert.False(t, cfg.Inference.Parallel)
	assert.Equal(t, 150*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, int64(1<<20), cfg.Upload.MaxImageBytes)
	assert.Empty(t, cfg.Mongo.URI)
	assert.False(t, cfg.HasStaticCredentials())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("BEDROCK_REGION", "us-east-1")
	t.Setenv("BEDROCK_MAX_TOKENS", "4096")
	t.Setenv("INFERENCE_PARALLEL", "true")
	t.Setenv("CLOUDFORMATION_STACK_PREFIX", "demo")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "us-east-1", cfg.BedrockRegion())
	assert.Equal(t, 4096, cfg.Bedrock.MaxTokens)
	assert.True(t, cfg.Inference.Parallel)
	assert.Equal(t, "demo", cfg.CloudFormation.StackPrefix)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestFromViper_YAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
server:
  port: 9090
mongo:
  uri: mongodb://localhost:27017
inference:
  timeout: 2m
`)))

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, 2*time.Minute, cfg.Inference.Timeout)
	assert.Equal(t, 2*time.Minute+10*time.Second, cfg.RequestTimeout())
}

func TestFromViper_Invalid(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	_, err := FromViper(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestFromViper_ModelTagTooLong(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("CLOUDFORMATION_MODEL_TAG", strings.Repeat("t", 33))

	_, err := FromViper(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloudformation.model_tag")
}
