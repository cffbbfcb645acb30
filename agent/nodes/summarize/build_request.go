package summarizenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	llmx "github.com/tanpawarit/video-summarizer/agent/llm"
	geminix "github.com/tanpawarit/video-summarizer/pkg/gemini"
)

func BuildRequest(
	ctx context.Context,
	in *GraphState,
	prompts contractx.PromptBuilder,
	opts llmx.RequestOptions,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	texts, err := prompts.Build(ctx, in.Settings.CustomInstruction)
	if err != nil {
		return nil, fmt.Errorf("%w: build prompt: %v", contractx.ErrValidation, err)
	}

	parts := make([]geminix.Part, 0, len(texts)+1)
	parts = append(parts, geminix.VideoPart(in.Operation.URL))
	for _, text := range texts {
		parts = append(parts, geminix.TextPart(text))
	}

	in.Request = geminix.Request{
		Contents: []geminix.Content{{
			Role:  geminix.RoleUser,
			Parts: parts,
		}},
		GenerationConfig: opts.GenerationConfig,
		Tools:            opts.Tools,
	}
	return in, nil
}
