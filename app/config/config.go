package config

import "time"

type Config struct {
	Server         HTTPServerConfig     `mapstructure:"server"`
	AWS            AWSConfig            `mapstructure:"aws"`
	Bedrock        BedrockConfig        `mapstructure:"bedrock"`
	Inference      InferenceConfig      `mapstructure:"inference"`
	CloudFormation CloudFormationConfig `mapstructure:"cloudformation"`
	Upload         UploadConfig         `mapstructure:"upload"`
	Mongo          MongoConfig          `mapstructure:"mongo"`
	FileRepo       FileRepoConfig       `mapstructure:"filerepo"`
	Log            LogConfig            `mapstructure:"log"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

type HTTPServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AWSConfig holds the region and optional static credentials. Empty keys mean the
// default credential chain is used.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

type BedrockConfig struct {
	// Region overrides AWS.Region for the runtime client only.
	Region           string `mapstructure:"region"`
	ModelID          string `mapstructure:"model_id"`
	AnthropicVersion string `mapstructure:"anthropic_version"`
	MaxTokens        int    `mapstructure:"max_tokens"`
	Language         string `mapstructure:"language"`
}

type InferenceConfig struct {
	Parallel bool          `mapstructure:"parallel"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CloudFormationConfig struct {
	StackPrefix string        `mapstructure:"stack_prefix"`
	ModelTag    string        `mapstructure:"model_tag"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	MaxImageBytes int64 `mapstructure:"max_image_bytes"`
}

// MongoConfig selects the persistent store. An empty URI keeps records in memory.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type FileRepoConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}
