package contract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tanpawarit/video-summarizer/agent/stream"
	"github.com/tanpawarit/video-summarizer/pkg/gemini"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateErrored    State = "errored"
)

// Terminal reports whether no further transition can happen in this operation.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindMissingCredential ErrorKind = "missing_credential"
	KindSettingsFault     ErrorKind = "settings_fault"
	KindUpstreamHTTP      ErrorKind = "upstream_http_error"
	KindTransportFault    ErrorKind = "transport_fault"
	KindEmptyResult       ErrorKind = "empty_result"
	KindBusy              ErrorKind = "busy"
)

// User-facing messages.
const (
	MessageMissingCredential = "Please save your API Key first."
	MessageFailed            = "Failed to summarize video. Please try again."
	MessageEmptyResult       = "No summary generated."
	MessageInvalidRequest    = "This page cannot be summarized."
)

// Config is fixed for the lifetime of a driver.
type Config struct {
	TriggerElementID string        `envconfig:"TRIGGER_ELEMENT_ID" split_words:"true" default:"gemini-extension-btn"`
	SummaryRegionID  string        `envconfig:"SUMMARY_REGION_ID" split_words:"true" default:"ai-summary-section"`
	ModelIdentifier  string        `envconfig:"MODEL_IDENTIFIER" split_words:"true" default:"gemini-2.5-flash-lite"`
	IdleTimeout      time.Duration `envconfig:"IDLE_TIMEOUT" split_words:"true" default:"60s"`
	StringAwareScan  bool          `envconfig:"STRING_AWARE_SCAN" split_words:"true" default:"false"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelIdentifier) == "" {
		return fmt.Errorf("%w: model identifier is required", ErrValidation)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("%w: idle timeout must be >= 0", ErrValidation)
	}
	return nil
}

// Operation identifies one summarize run.
type Operation struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	RegionID  string    `json:"region_id"`
	TriggerID string    `json:"trigger_id"`
	StartedAt time.Time `json:"started_at"`
}

// Result is the terminal outcome of one summarize run.
type Result struct {
	Operation   Operation    `json:"operation"`
	State       State        `json:"state"`
	Kind        ErrorKind    `json:"kind,omitempty"`
	Status      int          `json:"status,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Message     string       `json:"message,omitempty"`
	Err         error        `json:"-"`
	Transitions []State      `json:"transitions"`
	Stats       stream.Stats `json:"stats"`
}

// Succeeded reports a completed run that produced content.
func (r Result) Succeeded() bool {
	return r.State == StateCompleted && r.Kind == KindNone
}

// Tracker records the transitions and progress of one operation. It is
// written only by the goroutine running the operation.
type Tracker struct {
	states  []State
	summary string
	stats   stream.Stats
}

func NewTracker() *Tracker {
	return &Tracker{states: []State{StateIdle}}
}

func (t *Tracker) Enter(s State) {
	if t == nil {
		return
	}
	t.states = append(t.states, s)
}

func (t *Tracker) Current() State {
	if t == nil || len(t.states) == 0 {
		return StateIdle
	}
	return t.states[len(t.states)-1]
}

func (t *Tracker) States() []State {
	if t == nil {
		return nil
	}
	return append([]State(nil), t.states...)
}

func (t *Tracker) SetSummary(summary string) {
	if t != nil {
		t.summary = summary
	}
}

func (t *Tracker) Summary() string {
	if t == nil {
		return ""
	}
	return t.summary
}

func (t *Tracker) SetStats(stats stream.Stats) {
	if t != nil {
		t.stats = stats
	}
}

func (t *Tracker) Stats() stream.Stats {
	if t == nil {
		return stream.Stats{}
	}
	return t.stats
}

// Classify maps a driver error to its kind, upstream status and user message.
func Classify(err error) (ErrorKind, int, string) {
	if err == nil {
		return KindNone, 0, ""
	}

	var statusErr *gemini.StatusError
	switch {
	case errors.Is(err, ErrBusy):
		return KindBusy, 0, ""
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest, 0, MessageInvalidRequest
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential, 0, MessageMissingCredential
	case errors.Is(err, ErrSettingsFault):
		return KindSettingsFault, 0, MessageFailed
	case errors.As(err, &statusErr):
		return KindUpstreamHTTP, statusErr.StatusCode, MessageFailed
	case errors.Is(err, ErrEmptyResult):
		return KindEmptyResult, 0, MessageEmptyResult
	default:
		// transport faults, cancellation and anything unexpected
		return KindTransportFault, 0, MessageFailed
	}
}
