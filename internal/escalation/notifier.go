package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/provider/resilience"
)

// Message is an outbound contact notification.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html"`
	TextBody string `json:"text"`
}

// SendResult is the outcome of one send. Error is set when Success is false.
type SendResult struct {
	Success bool
	Error   string
}

// Notifier delivers messages to emergency contacts. Implementations report
// failures in the result instead of returning them.
type Notifier interface {
	Send(ctx context.Context, msg Message) SendResult
}

// LogNotifier writes messages to the log and always succeeds.
type LogNotifier struct {
	Logger zerolog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// Send logs the message.
func (n *LogNotifier) Send(_ context.Context, msg Message) SendResult {
	n.Logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("notification sent (log only)")
	return SendResult{Success: true}
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPNotifierConfig holds configuration for the HTTP mail relay notifier.
type HTTPNotifierConfig struct {
	// URL is the relay endpoint that accepts a JSON Message (required).
	URL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the per-request timeout (optional, defaults to 5s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// HTTPNotifierName identifies the relay in the provider registry.
const HTTPNotifierName = "mail_relay"

// HTTPNotifier posts messages to a mail relay.
type HTTPNotifier struct {
	url        string
	apiKey     string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier creates a notifier for the relay at cfg.URL.
func NewHTTPNotifier(cfg HTTPNotifierConfig) *HTTPNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		cb := resilience.NotifierCircuitBreakerConfig(HTTPNotifierName)
		cb.OnStateChange = resilience.LogStateChanges(cfg.Logger)

		clientCfg := resilience.DefaultClientConfig(HTTPNotifierName)
		clientCfg.Timeout = timeout
		clientCfg.MaxRetries = 2
		clientCfg.CircuitBreaker = &cb
		clientCfg.Registry = cfg.Registry
		clientCfg.Critical = true
		httpClient = resilience.NewClient(clientCfg)
	}

	return &HTTPNotifier{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Send posts msg to the relay. Any non-2xx response is a failed send.
func (n *HTTPNotifier) Send(ctx context.Context, msg Message) SendResult {
	body, err := json.Marshal(msg)
	if err != nil {
		return SendResult{Error: fmt.Sprintf("marshaling message: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return SendResult{Error: fmt.Sprintf("creating request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Debug().Err(err).Str("to", msg.To).Msg("mail relay request failed")
		return SendResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return SendResult{Error: fmt.Sprintf("relay returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))}
	}
	return SendResult{Success: true}
}
