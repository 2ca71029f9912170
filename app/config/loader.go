package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// matches the stack namer's tag bound
const maxModelTagLength = 32

var defaults = map[string]any{
	"server.host":          "0.0.0.0",
	"server.port":          8080,
	"server.read_timeout":  "120s",
	"server.write_timeout": "180s",

	"aws.region":            "us-west-2",
	"aws.access_key_id":     "",
	"aws.secret_access_key": "",
	"aws.session_token":     "",

	"bedrock.region":            "",
	"bedrock.model_id":          "anthropic.claude-3-sonnet-20240229-v1:0",
	"bedrock.anthropic_version": "bedrock-2023-05-31",
	"bedrock.max_tokens":        1024,
	"bedrock.language":          "French",

	"inference.parallel": false,
	"inference.timeout":  "150s",

	"cloudformation.stack_prefix": "diagram2code",
	"cloudformation.model_tag":    "claude3",
	"cloudformation.timeout":      "30s",

	"upload.max_image_bytes": 1 << 20,

	"mongo.uri":      "",
	"mongo.database": "diagram2code",

	"filerepo.dir": "./conversions",

	"log.level": "info",

	"metrics.addr": ":2112",
}

// Load reads .env, an optional config.yaml and the environment, in increasing
// priority. Keys map to variables by upper-casing and replacing dots, e.g.
// bedrock.model_id is BEDROCK_MODEL_ID.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper applies defaults and env overrides to v and decodes the result.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.AWS.Region == "" {
		return errors.New("aws.region is required")
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return errors.New("aws.access_key_id and aws.secret_access_key must be set together")
	}
	if c.Bedrock.ModelID == "" {
		return errors.New("bedrock.model_id is required")
	}
	if c.Bedrock.MaxTokens <= 0 {
		return fmt.Errorf("bedrock.max_tokens must be positive, got %d", c.Bedrock.MaxTokens)
	}
	if c.Upload.MaxImageBytes <= 0 {
		return fmt.Errorf("upload.max_image_bytes must be positive, got %d", c.Upload.MaxImageBytes)
	}
	if c.Inference.Timeout < 0 || c.CloudFormation.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if len(c.CloudFormation.ModelTag) > maxModelTagLength {
		return fmt.Errorf("cloudformation.model_tag longer than %d characters", maxModelTagLength)
	}
	if c.FileRepo.Dir == "" {
		return errors.New("filerepo.dir is required")
	}
	return nil
}

func (c *Config) BedrockRegion() string {
	if c.Bedrock.Region != "" {
		return c.Bedrock.Region
	}
	return c.AWS.Region
}

func (c *Config) HasStaticCredentials() bool {
	return c.AWS.AccessKeyID != "" && c.AWS.SecretAccessKey != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestTimeout bounds one upload request: the conversion plus some slack for
// reading the body and writing the response.
func (c *Config) RequestTimeout() time.Duration {
	if c.Inference.Timeout <= 0 {
		return 0
	}
	return c.Inference.Timeout + 10*time.Second
}
