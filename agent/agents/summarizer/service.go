package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	llmx "github.com/tanpawarit/video-summarizer/agent/llm"
	nodex "github.com/tanpawarit/video-summarizer/agent/nodes/summarize"
)

// Summarizer drives one summarize operation at a time from the page URL to
// the rendered summary.
type Summarizer struct {
	settings    contractx.SettingsReader
	transport   contractx.Transport
	prompts     contractx.PromptBuilder
	requestOpts llmx.RequestOptions
	cfg         contractx.Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	busy     atomic.Bool
	readSize int

	now   func() time.Time
	newID func() string
}

type Option func(*Summarizer)

// WithReadSize sets the body read buffer size.
func WithReadSize(n int) Option {
	return func(s *Summarizer) {
		s.readSize = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Summarizer) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Summarizer) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func New(
	settings contractx.SettingsReader,
	transport contractx.Transport,
	prompts contractx.PromptBuilder,
	requestOpts llmx.RequestOptions,
	cfg contractx.Config,
	opts ...Option,
) (*Summarizer, error) {
	if settings == nil {
		return nil, errors.New("settings reader is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.TriggerElementID = strings.TrimSpace(cfg.TriggerElementID)
	cfg.SummaryRegionID = strings.TrimSpace(cfg.SummaryRegionID)
	cfg.ModelIdentifier = strings.TrimSpace(cfg.ModelIdentifier)

	s := &Summarizer{
		settings:    settings,
		transport:   transport,
		prompts:     prompts,
		requestOpts: requestOpts,
		cfg:         cfg,
		readSize:    nodex.DefaultReadSize,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	graphRunner, err := s.compileSummarizeGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// Busy reports whether an operation is in flight.
func (s *Summarizer) Busy() bool {
	return s.busy.Load()
}

// Summarize runs one operation and never returns an error past this call:
// the outcome, including any failure, is in the Result and was shown on sink.
// A call made while another is in flight returns KindBusy without touching
// the transport or the sink.
func (s *Summarizer) Summarize(ctx context.Context, pageURL string, sink contractx.Sink) contractx.Result {
	if !s.busy.CompareAndSwap(false, true) {
		kind, _, _ := contractx.Classify(contractx.ErrBusy)
		return contractx.Result{
			State:       contractx.StateIdle,
			Kind:        kind,
			Err:         contractx.ErrBusy,
			Transitions: []contractx.State{contractx.StateIdle},
		}
	}
	defer s.busy.Store(false)

	if sink == nil {
		sink = discardSink{}
	}

	op := contractx.Operation{
		ID:        s.newID(),
		URL:       strings.TrimSpace(pageURL),
		RegionID:  s.cfg.SummaryRegionID,
		TriggerID: s.cfg.TriggerElementID,
		StartedAt: s.now().UTC(),
	}

	logger := log.With().
		Str("operation_id", op.ID).
		Str("region_id", op.RegionID).
		Logger()
	ctx = logger.WithContext(ctx)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tracker := contractx.NewTracker()
	watchdog := nodex.NewWatchdog(s.cfg.IdleTimeout, cancel)
	defer watchdog.Stop()

	sink.Begin(op)
	logger.Info().Str("url", op.URL).Msg("summarize started")

	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{
		Operation: op,
		Tracker:   tracker,
		Sink:      sink,
		Watchdog:  watchdog,
	})

	res := s.result(op, tracker, out, err)
	if res.Message != "" {
		sink.Fail(res.Message)
	}
	sink.End(res)

	logResult(logger, res)
	return res
}

func (s *Summarizer) result(
	op contractx.Operation,
	tracker *contractx.Tracker,
	out nodex.GraphOutput,
	err error,
) contractx.Result {
	kind, status, message := contractx.Classify(err)

	// An empty result is a soft failure of a completed run.
	if err != nil && tracker.Current() != contractx.StateCompleted {
		tracker.Enter(contractx.StateErrored)
	}

	summary := out.Summary
	if summary == "" {
		summary = tracker.Summary()
	}
	stats := out.Stats
	if err != nil {
		stats = tracker.Stats()
	}

	return contractx.Result{
		Operation:   op,
		State:       tracker.Current(),
		Kind:        kind,
		Status:      status,
		Summary:     summary,
		Message:     message,
		Err:         err,
		Transitions: tracker.States(),
		Stats:       stats,
	}
}

func logResult(logger zerolog.Logger, res contractx.Result) {
	event := logger.Info()
	if res.Err != nil {
		event = logger.Warn().Err(res.Err)
	}
	event.
		Str("state", string(res.State)).
		Str("kind", string(res.Kind)).
		Int("status", res.Status).
		Int("fragments", res.Stats.Fragments).
		Int("malformed", res.Stats.Malformed).
		Msg("summarize finished")
}

type discardSink struct{}

func (discardSink) Begin(contractx.Operation) {}
func (discardSink) Update(string)             {}
func (discardSink) Fail(string)               {}
func (discardSink) End(contractx.Result)      {}
