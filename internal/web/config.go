package web

import (
	"fmt"
	"strconv"

	"github.com/Lllllllleong/seoanalyser/internal/gcp"
	"github.com/go-playground/validator/v10"
)

const defaultMaxUploadBytes = 64 << 20

// Config holds the settings of the HTTP surface.
type Config struct {
	AccessKey      string `validate:"required"`
	MaxUploadBytes int64  `validate:"gte=1024"`
}

// LoadConfig reads the web configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKey:      gcp.GetEnv("ACCESS_KEY", ""),
		MaxUploadBytes: defaultMaxUploadBytes,
	}
	if raw := gcp.GetEnv("MAX_UPLOAD_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be an integer: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid web configuration: %w", err)
	}
	return cfg, nil
}
