package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	"github.com/tanpawarit/video-summarizer/pkg/qstash"
)

func testOperation(id string) contractx.Operation {
	return contractx.Operation{ID: id, URL: "https://www.youtube.com/watch?v=abc", RegionID: "ai-summary-section"}
}

func TestTerminalStreamPrintsDeltas(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf)

	term.Begin(testOperation("op-1"))
	term.Update("Hello")
	term.Update("Hello world")
	term.End(contractx.Result{State: contractx.StateCompleted})

	if got, want := buf.String(), "AI Summary\nHello world\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTerminalStreamReprintsOnDivergence(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf)

	term.Begin(testOperation("op-1"))
	term.Update("Hello")
	term.Update("Goodbye")
	term.End(contractx.Result{State: contractx.StateCompleted})

	if got, want := buf.String(), "AI Summary\nHello\nGoodbye\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTerminalStreamFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf)

	term.Begin(testOperation("op-1"))
	term.Update("Partial")
	term.Fail(contractx.MessageFailed)
	term.End(contractx.Result{State: contractx.StateErrored})

	want := "AI Summary\nPartial\nError\n" + contractx.MessageFailed + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTerminalStreamFailureBeforeContentShowsOnlyError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf)

	term.Begin(testOperation("op-1"))
	term.Fail(contractx.MessageMissingCredential)
	term.End(contractx.Result{State: contractx.StateErrored})

	if got, want := buf.String(), "Error\nPlease save your API Key first.\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTerminalBoxRendersOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf, WithMode(ModeBox), WithWidth(30))

	term.Begin(testOperation("op-1"))
	term.Update("one two three")
	if buf.Len() != 0 {
		t.Fatalf("box mode wrote before End: %q", buf.String())
	}
	term.Update("one two three four five six seven eight")
	term.End(contractx.Result{State: contractx.StateCompleted})

	got := buf.String()
	if !strings.HasPrefix(got, "AI Summary\n") {
		t.Fatalf("output = %q, want summary header", got)
	}
	for _, line := range strings.Split(strings.TrimSpace(got), "\n") {
		if len(line) > 24 {
			t.Fatalf("line %q exceeds wrap width", line)
		}
	}
	if !strings.Contains(strings.ReplaceAll(got, "\n", " "), "one two three four five six seven eight") {
		t.Fatalf("output = %q lost words", got)
	}
}

func TestTerminalBoxFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf, WithMode(ModeBox))

	term.Begin(testOperation("op-1"))
	term.Fail(contractx.MessageEmptyResult)
	term.End(contractx.Result{State: contractx.StateCompleted, Kind: contractx.KindEmptyResult})

	if got, want := buf.String(), "Error\nNo summary generated.\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTerminalBeginDismissesPreviousRegion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminalWriter(&buf, WithMode(ModeBox))

	term.Begin(testOperation("op-1"))
	term.Fail(contractx.MessageFailed)
	term.End(contractx.Result{State: contractx.StateErrored})
	buf.Reset()

	term.Begin(testOperation("op-2"))
	term.Update("Fresh")
	term.End(contractx.Result{State: contractx.StateCompleted})

	if got, want := buf.String(), "AI Summary\nFresh\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	cases := map[string]Mode{"": ModeStream, "stream": ModeStream, " BOX ": ModeBox}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("popup"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

type recordingSink struct {
	calls []string
}

func (r *recordingSink) Begin(op contractx.Operation) { r.calls = append(r.calls, "begin:"+op.ID) }
func (r *recordingSink) Update(summary string)        { r.calls = append(r.calls, "update:"+summary) }
func (r *recordingSink) Fail(message string)          { r.calls = append(r.calls, "fail:"+message) }
func (r *recordingSink) End(res contractx.Result)     { r.calls = append(r.calls, "end:"+string(res.State)) }

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	a, b := &recordingSink{}, &recordingSink{}
	m := NewMulti(a, nil, b)
	if len(m) != 2 {
		t.Fatalf("len(Multi) = %d, want 2", len(m))
	}

	m.Begin(testOperation("op-1"))
	m.Update("Hi")
	m.Fail("oops")
	m.End(contractx.Result{State: contractx.StateErrored})

	want := []string{"begin:op-1", "update:Hi", "fail:oops", "end:errored"}
	for _, sink := range []*recordingSink{a, b} {
		if strings.Join(sink.calls, "|") != strings.Join(want, "|") {
			t.Fatalf("calls = %v, want %v", sink.calls, want)
		}
	}
}

type fakePublisher struct {
	msgs []qstash.Message
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, msg qstash.Message) (string, error) {
	f.msgs = append(f.msgs, msg)
	if f.err != nil {
		return "", f.err
	}
	return "msg_1", nil
}

func TestQStashPublishesResult(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink := NewQStash(pub, "https://hooks.example.com/summaries", 0, zerolog.Nop())

	op := testOperation("op-9")
	sink.Begin(op)
	sink.Update("ignored")
	sink.End(contractx.Result{Operation: op, State: contractx.StateCompleted, Summary: "Hello world"})

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Destination != "https://hooks.example.com/summaries" || msg.DeduplicationID != "op-9" {
		t.Fatalf("message = %+v", msg)
	}

	var payload Payload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Summary != "Hello world" || payload.State != contractx.StateCompleted || payload.OperationID != "op-9" {
		t.Fatalf("payload = %+v", payload)
	}

	id, err := sink.Last()
	if id != "msg_1" || err != nil {
		t.Fatalf("Last() = %q, %v", id, err)
	}
}

func TestQStashRecordsPublishError(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("boom")}
	sink := NewQStash(pub, "https://hooks.example.com/summaries", 0, zerolog.Nop())

	sink.Begin(testOperation("op-1"))
	sink.End(contractx.Result{Operation: testOperation("op-1"), State: contractx.StateErrored})

	if _, err := sink.Last(); err == nil {
		t.Fatal("Last() error = nil, want publish error")
	}
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const markdownSummary = "## Key points\n\n* first\n* second"

type fakeMarkdown struct {
	calls []string
	err   error
}

func (f *fakeMarkdown) render(text string, width int) (string, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	return "RENDERED " + strings.ReplaceAll(text, "\n", " "), nil
}

func TestTerminalRichBoxRendersMarkdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	md := &fakeMarkdown{}
	term := newTerminal(&buf, true, WithMode(ModeBox), WithMarkdown(md.render))

	term.Begin(testOperation("op-1"))
	term.Update(markdownSummary)
	term.End(contractx.Result{State: contractx.StateCompleted})

	if len(md.calls) != 1 || md.calls[0] != markdownSummary {
		t.Fatalf("markdown calls = %q", md.calls)
	}
	got := buf.String()
	if !strings.Contains(got, "RENDERED") || !strings.Contains(got, "AI Summary") {
		t.Fatalf("output = %q, want rendered markdown under the summary header", got)
	}
}

func TestTerminalRichBoxFallsBackToRawText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	md := &fakeMarkdown{err: errors.New("bad markdown")}
	term := newTerminal(&buf, true, WithMode(ModeBox), WithMarkdown(md.render))

	term.Begin(testOperation("op-1"))
	term.Update(markdownSummary)
	term.End(contractx.Result{State: contractx.StateCompleted})

	got := buf.String()
	if strings.Contains(got, "RENDERED") || !strings.Contains(got, "## Key points") {
		t.Fatalf("output = %q, want the raw markdown", got)
	}
}

func TestTerminalMarkdownSkippedForErrorsAndPlainOutput(t *testing.T) {
	t.Parallel()

	md := &fakeMarkdown{}

	var rich bytes.Buffer
	term := newTerminal(&rich, true, WithMode(ModeBox), WithMarkdown(md.render))
	term.Begin(testOperation("op-1"))
	term.Fail(contractx.MessageFailed)
	term.End(contractx.Result{State: contractx.StateErrored})
	if !strings.Contains(rich.String(), contractx.MessageFailed) {
		t.Fatalf("output = %q", rich.String())
	}

	var plain bytes.Buffer
	term = NewTerminalWriter(&plain, WithMode(ModeBox), WithMarkdown(md.render))
	term.Begin(testOperation("op-2"))
	term.Update(markdownSummary)
	term.End(contractx.Result{State: contractx.StateCompleted})
	if !strings.Contains(plain.String(), "## Key points") {
		t.Fatalf("output = %q, want raw markdown", plain.String())
	}

	if len(md.calls) != 0 {
		t.Fatalf("markdown calls = %q, want none", md.calls)
	}
}

func TestGlamourMarkdown(t *testing.T) {
	t.Parallel()

	out, err := GlamourMarkdown(markdownSummary, 60)
	if err != nil {
		t.Fatalf("GlamourMarkdown() error = %v", err)
	}
	got := ansiEscape.ReplaceAllString(out, "")
	if !strings.Contains(got, "first") || !strings.Contains(got, "Key points") {
		t.Fatalf("GlamourMarkdown() = %q lost text", got)
	}
	if strings.Contains(got, "* first") {
		t.Fatalf("GlamourMarkdown() = %q kept the raw list marker", got)
	}
}
