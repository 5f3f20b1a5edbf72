package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/logger"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.paystack.co"
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 2
)

// Request describes one call to the Paystack API.
type Request struct {
	Path   string
	Method string
	Body   any
	// SecretKey overrides the client's credential when set.
	SecretKey string
}

// Response is the normalized result of a call. Remote 4xx/5xx answers are reported here,
// never as Go errors; Status is 500 when no answer could be obtained at all.
type Response struct {
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	// Unreachable is set when every attempt failed at the transport level.
	Unreachable bool `json:"-"`
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DataMap returns Data as a JSON object, or nil.
func (r Response) DataMap() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}

// DataList returns Data as a JSON array and whether it was one.
func (r Response) DataList() ([]any, bool) {
	l, ok := r.Data.([]any)
	return l, ok
}

// Caller is what the sync engine needs from the proxy.
type Caller interface {
	Call(ctx context.Context, req Request, opts ...CallOption) Response
}

type callOptions struct {
	timeout time.Duration
	retries int
}

type CallOption func(*callOptions)

// WithTimeout bounds every individual attempt.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// WithRetries sets how many extra attempts follow a timeout or network failure.
func WithRetries(n int) CallOption {
	return func(o *callOptions) {
		if n < 0 {
			n = 0
		}
		o.retries = n
	}
}

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *logger.PluginLogger
}

func NewClient(baseURL, secretKey string, httpClient *http.Client, log *logger.PluginLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = logger.NewPluginLogger(nil, false)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: httpClient,
		log:        log.With("proxy"),
	}
}

// NewClientFromConfig is the fx constructor.
func NewClientFromConfig(cfg *config.Config, log *zap.Logger) *Client {
	return NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, nil, logger.NewPluginLogger(log, cfg.Paystack.Logs))
}

// envelope is the standard Paystack response body.
type envelope struct {
	Status  *bool           `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Call performs the request. Attempts = retries + 1; only timeouts and network
// failures are retried, immediately and without backoff.
func (c *Client) Call(ctx context.Context, req Request, opts ...CallOption) Response {
	o := callOptions{timeout: DefaultTimeout, retries: DefaultRetries}
	for _, opt := range opts {
		opt(&o)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	secret := req.SecretKey
	if secret == "" {
		secret = c.secretKey
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return Response{Status: http.StatusInternalServerError, Message: fmt.Sprintf("encode request body: %v", err)}
		}
	}

	url := c.baseURL + ensureSlash(req.Path)
	if c.log.Verbose() {
		c.log.Debug("request",
			zap.String("method", method),
			zap.String("url", url),
			zap.String("secret_key", config.MaskSecret(secret)),
			zap.ByteString("body", body),
		)
	}

	var lastErr error
	timedOut := false
	for attempt := 0; attempt <= o.retries; attempt++ {
		resp, err := c.attempt(ctx, method, url, secret, body, o.timeout)
		if err == nil {
			c.log.Debug("response",
				zap.String("url", url),
				zap.Int("status", resp.Status),
				zap.String("message", resp.Message),
				zap.Int("attempt", attempt+1),
			)
			return resp
		}
		lastErr = err
		timedOut = isTimeout(err)
		c.log.Debug("attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Bool("timeout", timedOut),
			zap.Error(err),
		)
		// the caller gave up; more attempts cannot succeed
		if ctx.Err() != nil {
			break
		}
	}

	attempts := o.retries + 1
	if timedOut {
		return Response{
			Status:      http.StatusInternalServerError,
			Message:     fmt.Sprintf("Paystack request timed out after %d attempt(s) (%s each)", attempts, o.timeout),
			Unreachable: true,
		}
	}
	return Response{
		Status:      http.StatusInternalServerError,
		Message:     fmt.Sprintf("Paystack network error after %d attempt(s): %v", attempts, lastErr),
		Unreachable: true,
	}
}

// attempt returns an error only for transport-level failures.
func (c *Client) attempt(ctx context.Context, method, url, secret string, body []byte, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+secret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, err
	}
	return decodeResponse(httpResp.StatusCode, raw), nil
}

func decodeResponse(status int, raw []byte) Response {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Response{Status: status, Message: fmt.Sprintf("HTTP %d", status)}
	}

	if status < 200 || status > 299 {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("Paystack request failed with HTTP %d", status)
		}
		return Response{Status: status, Message: msg}
	}

	resp := Response{Status: status}
	if len(env.Data) > 0 {
		var data any
		if err := json.Unmarshal(env.Data, &data); err == nil {
			resp.Data = data
		}
	}
	return resp
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func ensureSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
