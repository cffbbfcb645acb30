package summarizenode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
)

// Finalize completes the run. An empty summary still completes but returns
// ErrEmptyResult so the caller can show the soft failure.
func Finalize(ctx context.Context, in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Tracker.Enter(contractx.StateCompleted)
	out := GraphOutput{Summary: in.Summary, Stats: in.Stats}
	if in.Summary == "" {
		return out, contractx.ErrEmptyResult
	}

	zerolog.Ctx(ctx).Info().Int("summary_bytes", len(in.Summary)).Msg("summary completed")
	return out, nil
}
