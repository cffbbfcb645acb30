package summarizenode

import (
	"fmt"
	"net/url"
	"strings"

	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	"github.com/tanpawarit/video-summarizer/agent/settings"
	"github.com/tanpawarit/video-summarizer/agent/stream"
	geminix "github.com/tanpawarit/video-summarizer/pkg/gemini"
)

type GraphInput struct {
	Operation contractx.Operation
	Tracker   *contractx.Tracker
	Sink      contractx.Sink
	Watchdog  *Watchdog
}

type GraphOutput struct {
	Summary string
	Stats   stream.Stats
}

type GraphState struct {
	Operation contractx.Operation
	Tracker   *contractx.Tracker
	Sink      contractx.Sink
	Watchdog  *Watchdog

	Settings settings.Settings
	Request  geminix.Request

	Summary string
	Stats   stream.Stats
}

func ValidateRequest(in GraphInput) (*GraphState, error) {
	pageURL := strings.TrimSpace(in.Operation.URL)
	if pageURL == "" {
		return nil, fmt.Errorf("%w: page url is empty", contractx.ErrInvalidRequest)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", contractx.ErrInvalidRequest, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: page url has no host", contractx.ErrInvalidRequest)
	}
	if in.Sink == nil {
		return nil, fmt.Errorf("%w: render sink is nil", contractx.ErrValidation)
	}

	op := in.Operation
	op.URL = u.String()

	return &GraphState{
		Operation: op,
		Tracker:   in.Tracker,
		Sink:      in.Sink,
		Watchdog:  in.Watchdog,
	}, nil
}
