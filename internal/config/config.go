package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Model artifacts
	ClassifierPath string
	EncoderPath    string

	// Batch mode
	InputDir     string
	OutputDir    string
	OutputFormat string

	// Worker pool
	WorkerCount           int
	MaxQueueSize          int
	MaxConcurrentClassify int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Result cache; empty disables it.
	ResultStorePath string

	// PDF
	PDFValidate bool

	LogLevel string
}

// Defaults, also used to repair invalid values after loading.
const (
	defaultPort                  = "8090"
	defaultClassifierPath        = "heading_classifier.json"
	defaultEncoderPath           = "label_encoder.json"
	defaultInputDir              = "input"
	defaultOutputDir             = "output"
	defaultOutputFormat          = "json"
	defaultWorkerCount           = 4
	defaultMaxQueueSize          = 100
	defaultMaxConcurrentClassify = 1
	defaultMaxUploadBytes        = 52428800 // 50MB
	defaultJobTTL                = time.Hour
	defaultLogLevel              = "info"
)

// Load resolves configuration from defaults, an optional YAML file and
// DOCOUTLINE_* environment variables, in increasing precedence. An
// explicit cfgFile must exist; the default ./docoutline.yaml is optional.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("port", defaultPort)
	v.SetDefault("api_key", "")
	v.SetDefault("classifier_path", defaultClassifierPath)
	v.SetDefault("encoder_path", defaultEncoderPath)
	v.SetDefault("input_dir", defaultInputDir)
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("output_format", defaultOutputFormat)
	v.SetDefault("worker_count", defaultWorkerCount)
	v.SetDefault("max_queue_size", defaultMaxQueueSize)
	v.SetDefault("max_concurrent_classify", defaultMaxConcurrentClassify)
	v.SetDefault("max_upload_bytes", defaultMaxUploadBytes)
	v.SetDefault("job_ttl", defaultJobTTL)
	v.SetDefault("result_store_path", "")
	v.SetDefault("pdf_validate", true)
	v.SetDefault("log_level", defaultLogLevel)

	v.SetEnvPrefix("DOCOUTLINE")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("docoutline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:   v.GetString("port"),
		APIKey: v.GetString("api_key"),

		ClassifierPath: v.GetString("classifier_path"),
		EncoderPath:    v.GetString("encoder_path"),

		InputDir:     v.GetString("input_dir"),
		OutputDir:    v.GetString("output_dir"),
		OutputFormat: strings.ToLower(v.GetString("output_format")),

		WorkerCount:           v.GetInt("worker_count"),
		MaxQueueSize:          v.GetInt("max_queue_size"),
		MaxConcurrentClassify: v.GetInt("max_concurrent_classify"),

		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		JobTTL: v.GetDuration("job_ttl"),

		ResultStorePath: v.GetString("result_store_path"),

		PDFValidate: v.GetBool("pdf_validate"),

		LogLevel: strings.ToLower(v.GetString("log_level")),
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = defaultMaxQueueSize
	}
	if cfg.MaxConcurrentClassify <= 0 {
		cfg.MaxConcurrentClassify = defaultMaxConcurrentClassify
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = defaultJobTTL
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultOutputFormat
	}

	return cfg, nil
}

// Validate checks settings every mode needs.
func (c Config) Validate() error {
	if c.ClassifierPath == "" {
		return fmt.Errorf("classifier_path is required")
	}
	if c.EncoderPath == "" {
		return fmt.Errorf("encoder_path is required")
	}
	switch c.OutputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("output_format must be json or yaml, got %q", c.OutputFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidateServe additionally checks settings the HTTP service needs.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCOUTLINE_API_KEY is required")
	}
	return nil
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
}
