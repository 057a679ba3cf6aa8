package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/notify"
	"storyboard/internal/types"
)

const (
	defaultBaseURL = "http://127.0.0.1:5000/api"
	defaultTimeout = 300 * time.Second
)

var errCallDeadline = errors.New("call deadline exceeded")

// Client is the single outbound channel to the storyboard backend.
type Client struct {
	baseURL   string
	pushURL   string
	http      *http.Client
	timeout   time.Duration
	emitter   notify.Emitter
	logger    logging.Logger
	providers *providerCache
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithEmitter sets where failed calls are reported.
func WithEmitter(emitter notify.Emitter) Option {
	return func(c *Client) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithProviderCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.providers = newProviderCache(ttl)
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: defaultTimeout,
		emitter: notify.Nop(),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.providers == nil {
		c.providers = newProviderCache(defaultProviderCacheTTL)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases the client's in-process caches.
func (c *Client) Close() {
	if c.providers != nil {
		c.providers.close()
	}
}

type callOptions struct {
	timeout time.Duration
	allow   map[int]struct{}
	quiet   bool
}

type CallOption func(*callOptions)

// CallTimeout overrides the client's round-trip bound for one call.
func CallTimeout(timeout time.Duration) CallOption {
	return func(o *callOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// AllowStatus treats the given non-2xx codes as success with no payload.
func AllowStatus(codes ...int) CallOption {
	return func(o *callOptions) {
		if o.allow == nil {
			o.allow = map[int]struct{}{}
		}
		for _, code := range codes {
			o.allow[code] = struct{}{}
		}
	}
}

// Quiet suppresses the user-visible notice for this call's failure. The
// error is still returned.
func Quiet() CallOption {
	return func(o *callOptions) {
		o.quiet = true
	}
}

type quietKey struct{}

// QuietContext marks every call made with ctx as Quiet. Background loops use
// it so a backend outage is not reported on every tick.
func QuietContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

// Call sends one request and decodes the payload of a successful response
// into out. Failures come back as ErrTimeout, ErrCancelled or
// *RequestFailedError; every failure except cancellation is also reported to
// the emitter exactly once.
func (c *Client) Call(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	options := callOptions{timeout: c.timeout}
	if quiet, _ := ctx.Value(quietKey{}).(bool); quiet {
		options.quiet = true
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	requestID := logging.NewRequestID()
	start := time.Now()

	callCtx, cancel := context.WithTimeoutCause(ctx, options.timeout, errCallDeadline)
	defer cancel()

	err := c.do(callCtx, requestID, method, path, body, out, options)
	if err == nil {
		c.logger.Debug("request_ok",
			logging.F("method", method),
			logging.F("path", path),
			logging.F("request_id", requestID),
			logging.F("dur", time.Since(start)),
		)
		return nil
	}
	err = classifyError(ctx, callCtx, err)
	c.report(ctx, requestID, method, path, err, options, time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, requestID, method, path string, body, out any, options callOptions) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &RequestFailedError{Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return &RequestFailedError{Message: fallbackErrorMessage, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if _, ok := options.allow[resp.StatusCode]; ok {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		return &RequestFailedError{StatusCode: resp.StatusCode, Message: "invalid response payload", Err: err}
	}
	return nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// classifyError maps a raw failure onto the gateway's error kinds. The
// caller's context is checked before the call context so a user abort is
// never reported as a timeout.
func classifyError(parent, callCtx context.Context, err error) error {
	if parent.Err() != nil {
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		if cause := context.Cause(parent); cause != nil && !errors.Is(cause, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrCancelled, cause)
		}
		return ErrCancelled
	}
	if errors.Is(context.Cause(callCtx), errCallDeadline) {
		return ErrTimeout
	}
	if reqErr := AsRequestFailed(err); reqErr != nil {
		return reqErr
	}
	return &RequestFailedError{Message: fallbackErrorMessage, Err: err}
}

func (c *Client) report(ctx context.Context, requestID, method, path string, err error, options callOptions, dur time.Duration) {
	fields := []logging.Field{
		logging.F("method", method),
		logging.F("path", path),
		logging.F("request_id", requestID),
		logging.F("dur", dur),
		logging.Err(err),
	}
	if errors.Is(err, ErrCancelled) {
		c.logger.Debug("request_cancelled", fields...)
		return
	}
	c.logger.Warn("request_failed", fields...)
	if options.quiet {
		return
	}
	c.emitter.Emit(context.WithoutCancel(ctx), types.Notice{
		Trigger:   types.NotificationTriggerRequestFailed,
		Level:     types.NotificationLevelError,
		Title:     "Request failed",
		Message:   UserMessage(err),
		RequestID: requestID,
	})
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	var payload errorPayload
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload)
	message := strings.TrimSpace(payload.Error)
	if message == "" {
		message = strings.TrimSpace(payload.Message)
	}
	if message == "" {
		message = fallbackErrorMessage
	}
	return &RequestFailedError{StatusCode: resp.StatusCode, Message: message}
}
