package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{BaseURL: "https://x", ThinkingBudget: -1}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	err := (Config{BaseURL: "https://x", ThinkingBudget: -2}).Validate()
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
	if err := (Config{}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestRequestOptions(t *testing.T) {
	t.Parallel()

	opts := Config{ThinkingBudget: 0, GoogleSearch: true}.RequestOptions()
	if opts.GenerationConfig == nil || opts.GenerationConfig.ThinkingConfig.ThinkingBudget != 0 {
		t.Fatalf("GenerationConfig = %#v", opts.GenerationConfig)
	}
	if len(opts.Tools) != 1 || opts.Tools[0].GoogleSearch == nil {
		t.Fatalf("Tools = %#v", opts.Tools)
	}

	if got := (Config{}).RequestOptions().Tools; got != nil {
		t.Fatalf("Tools without search = %#v, want nil", got)
	}
}

func TestClientConfigTrims(t *testing.T) {
	t.Parallel()

	cfg := Config{BaseURL: "  https://example.test  ", APIVersion: " v1 "}.ClientConfig()
	if cfg.BaseURL != "https://example.test" || cfg.APIVersion != "v1" {
		t.Fatalf("ClientConfig() = %+v", cfg)
	}
}
