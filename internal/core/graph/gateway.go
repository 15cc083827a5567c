// Package graph sends mutating requests to the Meta Graph API and turns every
// response into an Outcome, waiting out platform throttling along the way.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/metrics"
)

const (
	DefaultMaxRetries   = 5
	DefaultBaseWaitTime = time.Second
	DefaultTimeout      = 30 * time.Second

	maxBodyBytes = 10 << 20
)

// Config holds gateway tunables. Zero values select the defaults.
type Config struct {
	AccessToken  string
	MaxRetries   int
	BaseWaitTime time.Duration
	Timeout      time.Duration
}

// Request describes one remote mutation.
type Request struct {
	URL     string
	Method  string
	Payload map[string]any
	Headers http.Header
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Gateway dispatches requests and retries throttled calls. It holds no
// per-call state, so one value may serve concurrent requests.
type Gateway struct {
	Client       *http.Client
	AccessToken  string
	MaxRetries   int
	BaseWaitTime time.Duration
	Logger       *logging.Logger
	Sleep        SleepFunc
}

// New builds a gateway from explicit configuration.
func New(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		Client:       &http.Client{Timeout: timeout},
		AccessToken:  strings.TrimSpace(cfg.AccessToken),
		MaxRetries:   cfg.MaxRetries,
		BaseWaitTime: cfg.BaseWaitTime,
	}
}

// Send performs the request and returns its outcome. It never returns an
// error value directly; use Outcome.Err for that.
func (g *Gateway) Send(ctx context.Context, req Request) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	req.Method = method

	var out Outcome
	retries := 0
	wait := g.baseWaitTime()
	limit := g.maxRetries()

	for retries < limit {
		out.Transitions = append(out.Transitions, StateDispatching)
		out.Attempts++

		resp, err := g.dispatch(ctx, req)
		if err != nil {
			return g.finish(req, g.transport(out, retries, err))
		}

		out.StatusCode = resp.status
		out.Raw = resp.raw
		out.Body = resp.object

		if resp.status == http.StatusOK {
			out.Kind = KindSuccess
			out.Retries = retries
			return g.finish(req, out)
		}

		apiErr := parseAPIError(resp.object)
		if !apiErr.IsThrottle() {
			out.Kind = KindRemoteError
			out.Retries = retries
			out.Error = apiErr
			out.Message = apiErr.UserMessage
			return g.finish(req, out)
		}

		if minutes, ok := ParseUsageHint(resp.header.Get(UsageHeader)); ok {
			delay := HintDelay(minutes)
			out.Transitions = append(out.Transitions, StateAwaitingServerHint)
			g.logThrottle(req, StateAwaitingServerHint, delay, retries)
			metrics.RecordGraphThrottle(string(StateAwaitingServerHint), delay)
			if err := g.sleep(ctx, delay); err != nil {
				return g.finish(req, g.transport(out, retries, err))
			}
			continue
		}

		out.Transitions = append(out.Transitions, StateBackingOff)
		g.logThrottle(req, StateBackingOff, wait, retries)
		metrics.RecordGraphThrottle(string(StateBackingOff), wait)
		if err := g.sleep(ctx, wait); err != nil {
			return g.finish(req, g.transport(out, retries, err))
		}
		wait *= 2
		retries++
	}

	out.Kind = KindRetriesExhausted
	out.Retries = retries
	return g.finish(req, out)
}

type response struct {
	status int
	header http.Header
	raw    json.RawMessage
	object map[string]any
}

func (g *Gateway) dispatch(ctx context.Context, req Request) (*response, error) {
	httpReq, err := g.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode response body (status %d): %w", resp.StatusCode, err)
	}

	out := &response{
		status: resp.StatusCode,
		header: resp.Header,
		raw:    json.RawMessage(data),
	}
	if obj, ok := decoded.(map[string]any); ok {
		out.object = obj
	}
	return out, nil
}

// newHTTPRequest encodes the payload by method: POST as a form, DELETE as
// JSON only when the payload is non-empty, anything else as JSON.
func (g *Gateway) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("request url is required")
	}

	var (
		body        io.Reader
		contentType string
	)

	switch req.Method {
	case http.MethodPost:
		form, err := encodeForm(req.Payload)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case http.MethodDelete:
		if len(req.Payload) > 0 {
			data, err := json.Marshal(req.Payload)
			if err != nil {
				return nil, fmt.Errorf("encode payload: %w", err)
			}
			body = bytes.NewReader(data)
			contentType = "application/json"
		}
	default:
		if req.Payload != nil {
			data, err := json.Marshal(req.Payload)
			if err != nil {
				return nil, fmt.Errorf("encode payload: %w", err)
			}
			body = bytes.NewReader(data)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if g.AccessToken != "" && httpReq.Header.Get("Authorization") == "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.AccessToken)
	}
	return httpReq, nil
}

// encodeForm flattens scalars into form values; nested values are sent as
// JSON strings, which the Graph API accepts for object and array params.
func encodeForm(payload map[string]any) (url.Values, error) {
	form := url.Values{}
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := payload[key].(type) {
		case nil:
			continue
		case string:
			form.Set(key, v)
		case bool:
			form.Set(key, strconv.FormatBool(v))
		case int:
			form.Set(key, strconv.Itoa(v))
		case int64:
			form.Set(key, strconv.FormatInt(v, 10))
		case float64:
			form.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		case json.Number:
			form.Set(key, v.String())
		case fmt.Stringer:
			form.Set(key, v.String())
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode form field %s: %w", key, err)
			}
			form.Set(key, string(data))
		}
	}
	return form, nil
}

func (g *Gateway) transport(out Outcome, retries int, err error) Outcome {
	out.Kind = KindTransportError
	out.Retries = retries
	out.Message = err.Error()
	out.cause = err
	return out
}

func (g *Gateway) finish(req Request, out Outcome) Outcome {
	out.Transitions = append(out.Transitions, StateDone)
	metrics.RecordGraphRequest(req.Method, out.Kind.String(), out.Attempts)

	if g.Logger == nil {
		return out
	}
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", redactedPath(req.URL)),
		zap.String("outcome", out.Kind.String()),
		zap.Int("status", out.StatusCode),
		zap.Int("attempts", out.Attempts),
		zap.Int("retries", out.Retries),
	}
	switch out.Kind {
	case KindTransportError:
		g.Logger.Error("Graph request failed", append(fields, zap.String("error", out.Message))...)
	case KindRetriesExhausted:
		g.Logger.Warn("Graph rate limit retries exhausted", fields...)
	case KindRemoteError:
		g.Logger.Info("Graph request rejected", append(fields, zap.String("api_message", out.DetailMessage()))...)
	default:
		g.Logger.Debug("Graph request completed", fields...)
	}
	return out
}

func (g *Gateway) logThrottle(req Request, state State, delay time.Duration, retries int) {
	if g.Logger == nil {
		return
	}
	g.Logger.Warn("Graph request throttled",
		zap.String("method", req.Method),
		zap.String("path", redactedPath(req.URL)),
		zap.String("state", string(state)),
		zap.Duration("wait", delay),
		zap.Int("retries", retries))
}

func (g *Gateway) sleep(ctx context.Context, d time.Duration) error {
	if g.Sleep != nil {
		return g.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (g *Gateway) maxRetries() int {
	if g.MaxRetries > 0 {
		return g.MaxRetries
	}
	return DefaultMaxRetries
}

func (g *Gateway) baseWaitTime() time.Duration {
	if g.BaseWaitTime > 0 {
		return g.BaseWaitTime
	}
	return DefaultBaseWaitTime
}

// SleepContext waits for d unless ctx is cancelled first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// redactedPath drops the query so tokens never reach the logs.
func redactedPath(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Path
}
