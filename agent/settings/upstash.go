package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultKeyPrefix = "summarizer:settings:"

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type upstashOptions struct {
	keyPrefix string
	ttl       time.Duration
	client    *http.Client
}

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*upstashOptions)

func WithKeyPrefix(prefix string) StoreOption {
	return func(o *upstashOptions) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithTTL expires the settings hash ttl after each save. Zero keeps it.
func WithTTL(ttl time.Duration) StoreOption {
	return func(o *upstashOptions) {
		o.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(o *upstashOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// UpstashRedisStore keeps one settings hash per profile in Upstash Redis.
type UpstashRedisStore struct {
	rest redisREST
	key  string
	ttl  time.Duration
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, profile string, opts ...StoreOption) (*UpstashRedisStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid upstash redis url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := upstashOptions{
		keyPrefix: defaultKeyPrefix,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return &UpstashRedisStore{
		rest: redisREST{endpoint: endpoint, token: token, client: o.client},
		key:  o.keyPrefix + profileName(profile),
		ttl:  o.ttl,
	}, nil
}

// Load reads the hash. A missing hash is empty Settings.
func (s *UpstashRedisStore) Load(ctx context.Context) (Settings, error) {
	result, err := s.rest.do(ctx, "HGETALL", s.key)
	if err != nil {
		return Settings{}, err
	}
	if !result.IsArray() {
		return Settings{}, nil
	}

	flat := result.Array()
	if len(flat)%2 != 0 {
		return Settings{}, fmt.Errorf("decode settings hash: odd field count %d", len(flat))
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i].String()] = flat[i+1].String()
	}
	return fromFields(fields), nil
}

// Save writes the patched fields. With a TTL the write and the expiry go in
// one transaction.
func (s *UpstashRedisStore) Save(ctx context.Context, patch Patch) error {
	if patch.Empty() {
		return nil
	}

	hset := []any{"HSET", s.key}
	fields := patch.Fields()
	for _, name := range []string{KeyAPIKey, KeyCustomInstruction} {
		if v, ok := fields[name]; ok {
			hset = append(hset, name, v)
		}
	}

	if s.ttl == 0 {
		_, err := s.rest.do(ctx, hset...)
		return err
	}
	return s.rest.multiExec(ctx, hset, []any{"EXPIRE", s.key, expireSeconds(s.ttl)})
}

// expireSeconds rounds up so a sub-second TTL never becomes 0.
func expireSeconds(ttl time.Duration) int64 {
	return max(int64(math.Ceil(ttl.Seconds())), 1)
}
