package summarizenode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	geminix "github.com/tanpawarit/video-summarizer/pkg/gemini"
)

// StreamState carries the open response body from open_stream to
// consume_stream.
type StreamState struct {
	*GraphState
	Body io.ReadCloser
}

func OpenStream(
	ctx context.Context,
	in *GraphState,
	transport contractx.Transport,
	model string,
) (*StreamState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, contextFault(ctx)
	}

	in.Tracker.Enter(contractx.StateRequesting)
	zerolog.Ctx(ctx).Info().Str("model", model).Msg("opening generate stream")

	body, err := transport.StreamGenerateContent(ctx, model, in.Settings.APIKey, in.Request)
	if err != nil {
		var statusErr *geminix.StatusError
		switch {
		case errors.As(err, &statusErr):
			return nil, fmt.Errorf("%w: %w", contractx.ErrUpstreamHTTP, err)
		case ctx.Err() != nil:
			return nil, contextFault(ctx)
		default:
			return nil, fmt.Errorf("%w: %w", contractx.ErrTransportFault, err)
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%w: transport returned no body", contractx.ErrTransportFault)
	}

	return &StreamState{GraphState: in, Body: body}, nil
}

// contextFault explains why ctx ended. The watchdog cancels with
// ErrIdleTimeout; anything else means the caller went away.
func contextFault(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, contractx.ErrIdleTimeout) {
		return fmt.Errorf("%w: %w", contractx.ErrTransportFault, cause)
	}
	if cause == nil {
		cause = ctx.Err()
	}
	return fmt.Errorf("%w: %w: %w", contractx.ErrTransportFault, contractx.ErrContextInvalidated, cause)
}
