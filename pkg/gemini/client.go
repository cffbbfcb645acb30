package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	maxErrorBodyBytes = 64 << 10
)

var ErrMissingAPIKey = errors.New("gemini api key is empty")

type Config struct {
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"https://generativelanguage.googleapis.com"`
	APIVersion    string        `envconfig:"API_VERSION" split_words:"true" default:"v1beta"`
	Model         string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash-lite"`
	HeaderTimeout time.Duration `envconfig:"HEADER_TIMEOUT" split_words:"true" default:"30s"`
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gemini http status=%d", e.StatusCode)
	}
	return fmt.Sprintf("gemini http status=%d body=%s", e.StatusCode, e.Body)
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client calls the streaming generate endpoint.
type Client struct {
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gemini base url: %w", err)
	}

	apiVersion := strings.Trim(strings.TrimSpace(cfg.APIVersion), "/")
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	headerTimeout := cfg.HeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout

	client := &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      strings.TrimSpace(cfg.Model),
		// No overall timeout: the body streams for as long as generation runs.
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// StreamGenerateContent posts req and returns the response body. The caller
// owns the body. An empty model falls back to the configured one.
func (c *Client) StreamGenerateContent(ctx context.Context, model, apiKey string, req Request) (io.ReadCloser, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint, err := c.endpoint(model, apiKey)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute gemini request: %w", redact(err, apiKey))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	return resp.Body, nil
}

func (c *Client) endpoint(model, apiKey string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = c.model
	}
	if model == "" {
		return "", errors.New("gemini model is required")
	}

	u, err := url.Parse(fmt.Sprintf("%s/%s/models/%s:streamGenerateContent",
		c.baseURL, c.apiVersion, url.PathEscape(model)))
	if err != nil {
		return "", fmt.Errorf("build gemini url: %w", err)
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact keeps the key out of *url.Error messages, which embed the full URL.
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, url.QueryEscape(apiKey), "REDACTED"),
			Err: urlErr.Err,
		}
	}
	return err
}
