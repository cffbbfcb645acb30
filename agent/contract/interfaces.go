package contract

import (
	"context"
	"io"

	"github.com/tanpawarit/video-summarizer/agent/settings"
	"github.com/tanpawarit/video-summarizer/pkg/gemini"
)

// Transport opens the streaming generate call.
type Transport interface {
	StreamGenerateContent(ctx context.Context, model, apiKey string, req gemini.Request) (io.ReadCloser, error)
}

// SettingsReader is the read side of the settings store.
type SettingsReader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Sink displays one operation. Update receives the whole summary so far,
// never a delta.
type Sink interface {
	Begin(op Operation)
	Update(summary string)
	Fail(message string)
	End(res Result)
}

// PromptBuilder produces the instruction text parts for a request.
type PromptBuilder interface {
	Build(ctx context.Context, customInstruction string) ([]string, error)
}
