package render

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	"github.com/tanpawarit/video-summarizer/pkg/qstash"
)

type Publisher interface {
	Publish(ctx context.Context, msg qstash.Message) (string, error)
}

// Payload is the JSON body published for each finished operation.
type Payload struct {
	OperationID string              `json:"operation_id"`
	URL         string              `json:"url"`
	State       contractx.State     `json:"state"`
	Kind        contractx.ErrorKind `json:"kind,omitempty"`
	Status      int                 `json:"status,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Message     string              `json:"message,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
}

// QStash publishes the finished result to a QStash destination. It ignores
// intermediate updates.
type QStash struct {
	publisher   Publisher
	destination string
	timeout     time.Duration
	logger      zerolog.Logger

	lastID  string
	lastErr error
}

func NewQStash(publisher Publisher, destination string, timeout time.Duration, logger zerolog.Logger) *QStash {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QStash{
		publisher:   publisher,
		destination: destination,
		timeout:     timeout,
		logger:      logger,
	}
}

func (q *QStash) Begin(contractx.Operation) {
	q.lastID = ""
	q.lastErr = nil
}

func (q *QStash) Update(string) {}

func (q *QStash) Fail(string) {}

func (q *QStash) End(res contractx.Result) {
	body, err := json.Marshal(Payload{
		OperationID: res.Operation.ID,
		URL:         res.Operation.URL,
		State:       res.State,
		Kind:        res.Kind,
		Status:      res.Status,
		Summary:     res.Summary,
		Message:     res.Message,
		StartedAt:   res.Operation.StartedAt,
	})
	if err != nil {
		q.lastErr = err
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	id, err := q.publisher.Publish(ctx, qstash.Message{
		Destination:     q.destination,
		Body:            body,
		DeduplicationID: res.Operation.ID,
	})
	q.lastID, q.lastErr = id, err
	if err != nil {
		q.logger.Warn().Err(err).Str("operation_id", res.Operation.ID).Msg("publish summary failed")
		return
	}
	q.logger.Debug().Str("operation_id", res.Operation.ID).Str("message_id", id).Msg("summary published")
}

// Last returns the message id and error of the most recent publish.
func (q *QStash) Last() (string, error) {
	return q.lastID, q.lastErr
}
