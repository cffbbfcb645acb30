package summarizenode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	"github.com/tanpawarit/video-summarizer/agent/stream"
)

const DefaultReadSize = 4 << 10

type ConsumeOptions struct {
	StringAware bool
	ReadSize    int
}

// ConsumeStream reads the body to EOF and feeds every chunk through the
// pipeline. The sink stops receiving updates as soon as ctx ends.
func ConsumeStream(ctx context.Context, in *StreamState, opts ConsumeOptions) (*GraphState, error) {
	if in == nil || in.GraphState == nil {
		return nil, fmt.Errorf("%w: stream state is nil", contractx.ErrValidation)
	}
	body := in.Body
	defer body.Close()

	state := in.GraphState
	state.Tracker.Enter(contractx.StateStreaming)

	logger := zerolog.Ctx(ctx)
	pipe := stream.NewPipeline(
		func(summary string) {
			if ctx.Err() != nil {
				return
			}
			state.Tracker.SetSummary(summary)
			state.Sink.Update(summary)
		},
		stream.WithExtractorOptions(stream.WithStringAware(opts.StringAware)),
		stream.WithLogger(*logger),
	)

	size := opts.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)

	state.Watchdog.Kick()
	defer state.Watchdog.Stop()

	for {
		if ctx.Err() != nil {
			state.Tracker.SetStats(pipe.Close())
			return nil, contextFault(ctx)
		}

		n, err := body.Read(buf)
		if n > 0 {
			state.Watchdog.Kick()
			if ctx.Err() == nil {
				pipe.Feed(buf[:n])
			}
		}
		if errors.Is(err, io.EOF) {
			state.Watchdog.Stop()
			break
		}
		if err != nil {
			state.Tracker.SetStats(pipe.Close())
			if ctx.Err() != nil {
				return nil, contextFault(ctx)
			}
			return nil, fmt.Errorf("%w: read stream: %w", contractx.ErrTransportFault, err)
		}
	}

	if ctx.Err() != nil {
		state.Tracker.SetStats(pipe.Close())
		return nil, contextFault(ctx)
	}

	state.Stats = pipe.Close()
	state.Summary = pipe.Summary()
	state.Tracker.SetStats(state.Stats)

	logger.Debug().
		Int("objects", state.Stats.Objects).
		Int("fragments", state.Stats.Fragments).
		Int("malformed", state.Stats.Malformed).
		Int("residual_bytes", state.Stats.ResidualBytes).
		Msg("stream drained")

	return state, nil
}
