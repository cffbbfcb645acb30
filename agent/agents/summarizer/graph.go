package summarizer

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/video-summarizer/agent/nodes/summarize"
)

func (s *Summarizer) compileSummarizeGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_settings",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSettings(ctx, in, s.settings)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_settings: %w", err)
	}

	if err := graph.AddLambdaNode("build_request",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildRequest(ctx, in, s.prompts, s.requestOpts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_request: %w", err)
	}

	if err := graph.AddLambdaNode("open_stream",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.StreamState, error) {
			return nodex.OpenStream(ctx, in, s.transport, s.cfg.ModelIdentifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node open_stream: %w", err)
	}

	if err := graph.AddLambdaNode("consume_stream",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.StreamState) (*nodex.GraphState, error) {
			return nodex.ConsumeStream(ctx, in, nodex.ConsumeOptions{
				StringAware: s.cfg.StringAwareScan,
				ReadSize:    s.readSize,
			})
		}),
	); err != nil {
		return nil, fmt.Errorf("add node consume_stream: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_settings"},
		{"load_settings", "build_request"},
		{"build_request", "open_stream"},
		{"open_stream", "consume_stream"},
		{"consume_stream", "finalize"},
		{"finalize", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("summarizer.summarize"))
	if err != nil {
		return nil, fmt.Errorf("compile summarizer graph: %w", err)
	}
	return runner, nil
}
