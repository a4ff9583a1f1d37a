package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is the public Generative Language API root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig configures the image and text models used by the transform pipeline.
// An empty API key disables every remote call; transforms then fall back to the source photo.
type GeminiConfig struct {
	APIKey     string        `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv  string        `mapstructure:"api_key_env"` // Environment variable name for API key
	BaseURL    string        `mapstructure:"base_url"`
	ImageModel string        `mapstructure:"image_model"` // "imagen-*" synthesises, anything else edits
	TextModel  string        `mapstructure:"text_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars loads the API key from APIKeyEnv when no direct value is set.
func (c *GeminiConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
}

// Enabled reports whether remote generation is configured.
func (c *GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

// Validate checks the fields needed when the integration is enabled.
func (c *GeminiConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.ImageModel == "" {
		return fmt.Errorf("gemini: image_model is required when api_key is set")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("gemini: base_url is required when api_key is set")
	}
	return nil
}
