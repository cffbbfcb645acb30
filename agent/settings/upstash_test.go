package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type redisCall struct {
	path string
	cmds [][]any
}

type recordedCalls struct {
	mu    sync.Mutex
	calls []redisCall
}

func (r *recordedCalls) add(call redisCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordedCalls) all() []redisCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]redisCall(nil), r.calls...)
}

// newRedisServer accepts single commands on "/" and transactions on
// "/multi-exec". reply answers each command; transactions get an array of
// the per-command replies.
func newRedisServer(t *testing.T, rec *recordedCalls, reply func(cmd []any) string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q", got)
		}

		switch r.URL.Path {
		case multiExecPath:
			var cmds [][]any
			if err := json.NewDecoder(r.Body).Decode(&cmds); err != nil {
				t.Errorf("decode transaction: %v", err)
				return
			}
			rec.add(redisCall{path: r.URL.Path, cmds: cmds})
			replies := make([]string, 0, len(cmds))
			for _, cmd := range cmds {
				replies = append(replies, reply(cmd))
			}
			fmt.Fprint(w, "["+strings.Join(replies, ",")+"]")
		default:
			var cmd []any
			if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
				t.Errorf("decode command: %v", err)
				return
			}
			rec.add(redisCall{path: r.URL.Path, cmds: [][]any{cmd}})
			fmt.Fprint(w, reply(cmd))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestRedisStore(t *testing.T, server *httptest.Server, profile string, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()
	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, profile, opts...)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreLoadDecodesHash(t *testing.T) {
	t.Parallel()

	rec := &recordedCalls{}
	server := newRedisServer(t, rec, func([]any) string {
		return `{"result":["apiKey","key-1","customInstruction","in Thai"]}`
	})
	store := newTestRedisStore(t, server, "p1")

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != (Settings{APIKey: "key-1", CustomInstruction: "in Thai"}) {
		t.Fatalf("Load() = %+v", got)
	}

	calls := rec.all()
	if len(calls) != 1 || calls[0].path != "/" {
		t.Fatalf("calls = %#v", calls)
	}
	if cmd := calls[0].cmds[0]; cmd[0] != "HGETALL" || cmd[1] != "summarizer:settings:p1" {
		t.Fatalf("command = %#v", cmd)
	}
}

func TestUpstashRedisStoreLoadEmptyHashUsesDefaultProfile(t *testing.T) {
	t.Parallel()

	rec := &recordedCalls{}
	server := newRedisServer(t, rec, func([]any) string { return `{"result":[]}` })
	store := newTestRedisStore(t, server, "   ")

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != (Settings{}) {
		t.Fatalf("Load() = %+v, want empty", got)
	}
	if key := rec.all()[0].cmds[0][1]; key != "summarizer:settings:default" {
		t.Fatalf("key = %v, want default profile", key)
	}
}

func TestUpstashRedisStoreLoadRejectsOddHash(t *testing.T) {
	t.Parallel()

	server := newRedisServer(t, &recordedCalls{}, func([]any) string { return `{"result":["apiKey"]}` })
	store := newTestRedisStore(t, server, "p1")

	if _, err := store.Load(context.Background()); err == nil || !strings.Contains(err.Error(), "odd field count") {
		t.Fatalf("Load() error = %v, want odd field count", err)
	}
}

func TestUpstashRedisStoreSaveWithTTLUsesTransaction(t *testing.T) {
	t.Parallel()

	rec := &recordedCalls{}
	server := newRedisServer(t, rec, func([]any) string { return `{"result":1}` })
	store := newTestRedisStore(t, server, "p2",
		WithKeyPrefix("custom:"),
		WithTTL(90*time.Minute+time.Millisecond),
	)

	if err := store.Save(context.Background(), Patch{CustomInstruction: strPtr("")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	calls := rec.all()
	if len(calls) != 1 || calls[0].path != multiExecPath || len(calls[0].cmds) != 2 {
		t.Fatalf("calls = %#v, want one transaction of HSET + EXPIRE", calls)
	}
	hset := calls[0].cmds[0]
	if len(hset) != 4 || hset[0] != "HSET" || hset[1] != "custom:p2" || hset[2] != KeyCustomInstruction || hset[3] != "" {
		t.Fatalf("HSET = %#v", hset)
	}
	expire := calls[0].cmds[1]
	if expire[0] != "EXPIRE" || expire[1] != "custom:p2" || expire[2] != float64(5401) {
		t.Fatalf("EXPIRE = %#v", expire)
	}
}

func TestUpstashRedisStoreSaveWithoutTTLSendsSingleCommand(t *testing.T) {
	t.Parallel()

	rec := &recordedCalls{}
	server := newRedisServer(t, rec, func([]any) string { return `{"result":2}` })
	store := newTestRedisStore(t, server, "p2")

	patch := Patch{APIKey: strPtr("k"), CustomInstruction: strPtr("short")}
	if err := store.Save(context.Background(), patch); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	calls := rec.all()
	if len(calls) != 1 || calls[0].path != "/" {
		t.Fatalf("calls = %#v, want one plain command", calls)
	}
	want := []any{"HSET", "summarizer:settings:p2", KeyAPIKey, "k", KeyCustomInstruction, "short"}
	got := calls[0].cmds[0]
	if len(got) != len(want) {
		t.Fatalf("HSET = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("HSET = %#v, want %#v", got, want)
		}
	}
}

func TestUpstashRedisStoreSaveEmptyPatchIsNoop(t *testing.T) {
	t.Parallel()

	rec := &recordedCalls{}
	server := newRedisServer(t, rec, func([]any) string { return `{"result":1}` })
	store := newTestRedisStore(t, server, "p2")

	if err := store.Save(context.Background(), Patch{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if calls := rec.all(); len(calls) != 0 {
		t.Fatalf("calls = %#v, want none", calls)
	}
}

func TestUpstashRedisStoreErrorResponse(t *testing.T) {
	t.Parallel()

	server := newRedisServer(t, &recordedCalls{}, func([]any) string { return `{"error":"WRONGTYPE"}` })
	store := newTestRedisStore(t, server, "p3")

	if _, err := store.Load(context.Background()); err == nil || err.Error() != "WRONGTYPE" {
		t.Fatalf("Load() error = %v, want WRONGTYPE", err)
	}
}

func TestUpstashRedisStoreTransactionErrorNamesCommand(t *testing.T) {
	t.Parallel()

	server := newRedisServer(t, &recordedCalls{}, func(cmd []any) string {
		if cmd[0] == "EXPIRE" {
			return `{"error":"ERR invalid expire time"}`
		}
		return `{"result":1}`
	})
	store := newTestRedisStore(t, server, "p4", WithTTL(time.Millisecond))

	err := store.Save(context.Background(), Patch{APIKey: strPtr("k")})
	if err == nil || !strings.Contains(err.Error(), "command 1") || !strings.Contains(err.Error(), "invalid expire time") {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestUpstashRedisStoreHTTPStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	store := newTestRedisStore(t, server, "p5")

	if _, err := store.Load(context.Background()); err == nil || !strings.Contains(err.Error(), "status=502") {
		t.Fatalf("Load() error = %v, want status=502", err)
	}
}

func TestExpireSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]int64{
		time.Millisecond:                  1,
		time.Second:                       1,
		90*time.Minute + time.Millisecond: 5401,
	}
	for ttl, want := range cases {
		if got := expireSeconds(ttl); got != want {
			t.Errorf("expireSeconds(%v) = %d, want %d", ttl, got, want)
		}
	}
}

func TestNewUpstashRedisStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{Token: "t"}, "p"); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "https://example.upstash.io"}, "p"); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "https://example.upstash.io", Token: "t"}, "p", WithTTL(-time.Second)); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
