package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/llm"
	"github.com/skillprobe/interviewer/internal/logger"
	"github.com/skillprobe/interviewer/internal/utils"
)

const (
	backendName = "ollama"

	DefaultHost  = "http://localhost:11434"
	DefaultModel = "mistral"

	defaultTemperature = 0.3
	defaultTopP        = 0.9
	defaultNumCtx      = 2048
	defaultNumPredict  = 256

	retryBackoff = 2 * time.Second
)

// Config describes a connection to an Ollama server plus the default sampling
// options applied to every call.
type Config struct {
	Host        string
	Model       string
	Temperature float64
	TopP        float64
	NumCtx      int
	NumPredict  int
	MaxRetries  int
	// Token is an optional bearer token for servers behind an
	// authenticating proxy.
	Token string
}

// Client adapts the Ollama chat API to the llm.Generator interface.
type Client struct {
	api        *api.Client
	model      string
	defaults   llm.Options
	maxRetries int
	logger     *zap.Logger
}

// New creates a Client from the provided config, filling unset fields with
// the documented defaults.
func New(cfg *Config, log *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = DefaultHost
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	httpClient := http.DefaultClient
	if token := strings.TrimSpace(cfg.Token); token != "" {
		httpClient = &http.Client{Transport: &bearerTransport{token: token}}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		api:        api.NewClient(base, httpClient),
		model:      model,
		defaults:   defaultOptions(cfg),
		maxRetries: maxRetries,
		logger:     logger.WithBackendFields(log, backendName, model),
	}, nil
}

// Chat sends the messages to the Ollama server and returns the full textual
// reply. Per-call opts override the client defaults. Failures after all
// retries are reported as a *llm.GenerationError.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if len(messages) == 0 {
		return "", &llm.GenerationError{Backend: backendName, Err: errors.New("no messages to send")}
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: convertMessages(messages),
		Stream:   new(bool),
		Options:  c.mergedOptions(opts),
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying chat request",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, time.Duration(attempt)*retryBackoff); err != nil {
				return "", &llm.GenerationError{Backend: backendName, Err: err}
			}
		}

		var sb strings.Builder
		err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
			sb.WriteString(resp.Message.Content)
			return nil
		})
		if err != nil {
			lastErr = err
			continue
		}

		out := strings.TrimSpace(sb.String())
		if out == "" {
			lastErr = errors.New("empty response")
			continue
		}

		return out, nil
	}

	return "", &llm.GenerationError{Backend: backendName, Err: lastErr}
}

// Model returns the model identifier this client talks to.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func defaultOptions(cfg *Config) llm.Options {
	opts := llm.Options{
		"temperature": defaultTemperature,
		"top_p":       defaultTopP,
		"num_ctx":     defaultNumCtx,
		"num_predict": defaultNumPredict,
	}

	if cfg.Temperature > 0 {
		opts["temperature"] = cfg.Temperature
	}
	if cfg.TopP > 0 {
		opts["top_p"] = cfg.TopP
	}
	if cfg.NumCtx > 0 {
		opts["num_ctx"] = cfg.NumCtx
	}
	if cfg.NumPredict > 0 {
		opts["num_predict"] = cfg.NumPredict
	}

	return opts
}

func (c *Client) mergedOptions(opts llm.Options) map[string]any {
	merged := make(map[string]any, len(c.defaults)+len(opts))
	for k, v := range c.defaults {
		merged[k] = v
	}
	for k, v := range opts {
		merged[k] = v
	}
	return merged
}

func convertMessages(messages []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// bearerTransport attaches an Authorization header to every request.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)

	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(clone)
}
