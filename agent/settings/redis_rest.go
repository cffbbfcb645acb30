package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	multiExecPath   = "/multi-exec"
	maxReplyBytes   = 1 << 20
	redisReplyError = "error"
)

// redisREST speaks the Upstash Redis REST protocol: a single command is a
// JSON array posted to the root, a transaction is an array of commands
// posted to /multi-exec.
type redisREST struct {
	endpoint string
	token    string
	client   *http.Client
}

// do runs one command and returns its "result" value.
func (r redisREST) do(ctx context.Context, args ...any) (gjson.Result, error) {
	reply, err := r.post(ctx, "", args)
	if err != nil {
		return gjson.Result{}, err
	}
	return unwrapReply(reply)
}

// multiExec runs cmds atomically.
func (r redisREST) multiExec(ctx context.Context, cmds ...[]any) error {
	reply, err := r.post(ctx, multiExecPath, cmds)
	if err != nil {
		return err
	}
	if !reply.IsArray() {
		return fmt.Errorf("upstash transaction: unexpected reply %s", reply.Raw)
	}
	for i, item := range reply.Array() {
		if _, err := unwrapReply(item); err != nil {
			return fmt.Errorf("upstash transaction command %d: %w", i, err)
		}
	}
	return nil
}

func (r redisREST) post(ctx context.Context, path string, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode upstash command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("upstash request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read upstash reply: %w", err)
	}

	reply := gjson.ParseBytes(raw)
	if resp.StatusCode/100 != 2 {
		// error replies still carry a JSON body
		if msg := reply.Get(redisReplyError); msg.Exists() {
			return gjson.Result{}, errors.New(msg.String())
		}
		return gjson.Result{}, fmt.Errorf("upstash http status=%d body=%s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("upstash reply is not json: %q", raw)
	}
	return reply, nil
}

func unwrapReply(reply gjson.Result) (gjson.Result, error) {
	if msg := reply.Get(redisReplyError); msg.Exists() {
		return gjson.Result{}, errors.New(msg.String())
	}
	return reply.Get("result"), nil
}
