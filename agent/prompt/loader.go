package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/summarize.txt
	summarizeRaw string

	//go:embed template/custom.txt
	customRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Summarize string
	Custom    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Summarize: strings.TrimSpace(summarizeRaw),
		Custom:    strings.TrimSpace(customRaw),
	}
}

// Builder turns the stored custom instruction into request text parts.
type Builder struct {
	base   string
	custom einoprompt.ChatTemplate
}

func NewBuilder(set PromptSet) (*Builder, error) {
	base := strings.TrimSpace(set.Summarize)
	if base == "" {
		return nil, fmt.Errorf("summarize prompt is empty")
	}
	b := &Builder{base: base}
	if custom := strings.TrimSpace(set.Custom); custom != "" {
		b.custom = einoprompt.FromMessages(schema.FString, schema.UserMessage(custom))
	}
	return b, nil
}

func MustNewBuilder() *Builder {
	b, err := NewBuilder(LoadPromptSet())
	if err != nil {
		panic(err)
	}
	return b
}

// Build returns the base instruction, followed by the custom instruction when
// one is set.
func (b *Builder) Build(ctx context.Context, customInstruction string) ([]string, error) {
	parts := []string{b.base}

	customInstruction = strings.TrimSpace(customInstruction)
	if customInstruction == "" || b.custom == nil {
		return parts, nil
	}

	msgs, err := b.custom.Format(ctx, map[string]any{
		"custom_instruction": customInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("format custom instruction: %w", err)
	}
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if text := strings.TrimSpace(msg.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return parts, nil
}
