package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	geminix "github.com/tanpawarit/video-summarizer/pkg/gemini"
)

type Config struct {
	BaseURL        string        `envconfig:"BASE_URL" split_words:"true" default:"https://generativelanguage.googleapis.com"`
	APIVersion     string        `envconfig:"API_VERSION" split_words:"true" default:"v1beta"`
	HeaderTimeout  time.Duration `envconfig:"HEADER_TIMEOUT" split_words:"true" default:"30s"`
	ThinkingBudget int           `envconfig:"THINKING_BUDGET" split_words:"true" default:"0"`
	GoogleSearch   bool          `envconfig:"GOOGLE_SEARCH" split_words:"true" default:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: gemini base url is required", contractx.ErrValidation)
	}
	// -1 asks the model to pick its own budget.
	if c.ThinkingBudget < -1 {
		return fmt.Errorf("%w: thinking budget must be >= -1", contractx.ErrValidation)
	}
	return nil
}

// ClientConfig is the transport configuration. The model is chosen per
// request by the driver.
func (c Config) ClientConfig() geminix.Config {
	return geminix.Config{
		BaseURL:       strings.TrimSpace(c.BaseURL),
		APIVersion:    strings.TrimSpace(c.APIVersion),
		HeaderTimeout: c.HeaderTimeout,
	}
}

// RequestOptions is the fixed, non-content part of every request body.
type RequestOptions struct {
	GenerationConfig *geminix.GenerationConfig
	Tools            []geminix.Tool
}

func (c Config) RequestOptions() RequestOptions {
	opts := RequestOptions{
		GenerationConfig: &geminix.GenerationConfig{
			ThinkingConfig: &geminix.ThinkingConfig{ThinkingBudget: c.ThinkingBudget},
		},
	}
	if c.GoogleSearch {
		opts.Tools = []geminix.Tool{{GoogleSearch: &geminix.GoogleSearch{}}}
	}
	return opts
}
