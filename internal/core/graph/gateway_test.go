package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const throttleBody = `{"error":{"message":"User request limit reached","type":"OAuthException","code":80004,"error_subcode":2446079,"fbtrace_id":"trace"}}`

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return s.err
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newTestGateway(server *httptest.Server, sleeper *sleepRecorder) *Gateway {
	return &Gateway{
		Client: server.Client(),
		Sleep:  sleeper.sleep,
	}
}

type scriptedReply struct {
	status int
	header map[string]string
	body   string
}

// scriptedServer answers the i-th call with replies[i] and repeats the last
// reply once the script runs out.
func scriptedServer(t *testing.T, replies ...scriptedReply) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := int(atomic.AddInt32(&calls, 1)) - 1
		if idx >= len(replies) {
			idx = len(replies) - 1
		}
		reply := replies[idx]
		for k, v := range reply.header {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		_, _ = io.WriteString(w, reply.body)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestSendSuccess(t *testing.T) {
	server, calls := scriptedServer(t, scriptedReply{status: http.StatusOK, body: `{"id":"120330000000000000"}`})
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{
		URL:     server.URL + "/v22.0/act_1/campaigns",
		Method:  http.MethodPost,
		Payload: map[string]any{"name": "Spring"},
	})

	require.Equal(t, KindSuccess, out.Kind)
	require.True(t, out.OK())
	require.NoError(t, out.Err())
	require.Equal(t, "120330000000000000", out.ID())
	require.Equal(t, http.StatusOK, out.StatusCode)
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 0, out.Retries)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))
	require.Empty(t, sleeper.recorded())
	require.Equal(t, []State{StateDispatching, StateDone}, out.Transitions)
}

func TestSendBacksOffThenSucceeds(t *testing.T) {
	server, calls := scriptedServer(t,
		scriptedReply{status: http.StatusBadRequest, body: throttleBody},
		scriptedReply{status: http.StatusBadRequest, body: throttleBody},
		scriptedReply{status: http.StatusOK, body: `{"success":true}`},
	)
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindSuccess, out.Kind)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 2, out.Retries)
	require.Equal(t, int32(3), atomic.LoadInt32(calls))
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.recorded())
	require.Equal(t, true, out.Body["success"])
}

func TestSendServerHintDoesNotConsumeRetry(t *testing.T) {
	hint := map[string]string{UsageHeader: `{"ads_management":[{"estimated_time_to_regain_access":5}]}`}
	server, _ := scriptedServer(t,
		scriptedReply{status: http.StatusBadRequest, header: hint, body: throttleBody},
		scriptedReply{status: http.StatusOK, body: `{"id":"1"}`},
	)
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindSuccess, out.Kind)
	require.Equal(t, 0, out.Retries)
	require.Equal(t, 2, out.Attempts)
	require.Equal(t, []time.Duration{300 * time.Second}, sleeper.recorded())
	require.Equal(t, []State{StateDispatching, StateAwaitingServerHint, StateDispatching, StateDone}, out.Transitions)
}

func TestSendServerHintsNeverExhaustRetries(t *testing.T) {
	hint := map[string]string{UsageHeader: `{"ads_management":[{"estimated_time_to_regain_access":1}]}`}
	replies := make([]scriptedReply, 0, 9)
	for i := 0; i < 8; i++ {
		replies = append(replies, scriptedReply{status: http.StatusBadRequest, header: hint, body: throttleBody})
	}
	replies = append(replies, scriptedReply{status: http.StatusOK, body: `{"id":"1"}`})
	server, _ := scriptedServer(t, replies...)
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindSuccess, out.Kind)
	require.Equal(t, 9, out.Attempts)
	require.Equal(t, 0, out.Retries)
	require.Len(t, sleeper.recorded(), 8)
}

func TestSendExhaustsRetries(t *testing.T) {
	server, calls := scriptedServer(t, scriptedReply{status: http.StatusBadRequest, body: throttleBody})
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindRetriesExhausted, out.Kind)
	require.Equal(t, 5, out.Attempts)
	require.Equal(t, 5, out.Retries)
	require.Equal(t, int32(5), atomic.LoadInt32(calls))
	require.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, sleeper.recorded())
	require.ErrorIs(t, out.Err(), ErrRetriesExhausted)
}

func TestSendUnusableHintFallsBackToBackoff(t *testing.T) {
	headers := map[string]string{
		"Zero":               `{"ads_management":[{"estimated_time_to_regain_access":0}]}`,
		"ZeroBeforePositive": `{"a":[{"estimated_time_to_regain_access":0}],"b":[{"estimated_time_to_regain_access":7}]}`,
		"ZeroInSameCategory": `{"ads_management":[{"estimated_time_to_regain_access":0},{"estimated_time_to_regain_access":5}]}`,
	}

	for name, value := range headers {
		t.Run(name, func(t *testing.T) {
			hint := map[string]string{UsageHeader: value}
			server, _ := scriptedServer(t,
				scriptedReply{status: http.StatusBadRequest, header: hint, body: throttleBody},
				scriptedReply{status: http.StatusOK, body: `{}`},
			)
			sleeper := &sleepRecorder{}

			out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

			require.Equal(t, KindSuccess, out.Kind)
			require.Equal(t, 1, out.Retries)
			require.Equal(t, []time.Duration{time.Second}, sleeper.recorded())
			require.Contains(t, out.Transitions, StateBackingOff)
			require.NotContains(t, out.Transitions, StateAwaitingServerHint)
		})
	}
}

func TestSendCustomTunables(t *testing.T) {
	server, _ := scriptedServer(t, scriptedReply{status: http.StatusBadRequest, body: throttleBody})
	sleeper := &sleepRecorder{}
	gw := newTestGateway(server, sleeper)
	gw.MaxRetries = 2
	gw.BaseWaitTime = 10 * time.Millisecond

	out := gw.Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindRetriesExhausted, out.Kind)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, sleeper.recorded())
}

func TestSendRemoteError(t *testing.T) {
	body := `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,"error_subcode":1487,"error_user_title":"Budget too low","error_user_msg":"Your budget is too low."}}`
	server, calls := scriptedServer(t, scriptedReply{status: http.StatusBadRequest, body: body})
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindRemoteError, out.Kind)
	require.Equal(t, "Your budget is too low.", out.Message)
	require.Equal(t, http.StatusBadRequest, out.StatusCode)
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))
	require.Empty(t, sleeper.recorded())
	require.NotNil(t, out.Error)
	require.Equal(t, 100, out.Error.Code)
	require.Equal(t, 1487, out.Error.Subcode)
	require.Equal(t, "Invalid parameter", out.Error.Message)
	require.JSONEq(t, body, string(out.Raw))

	var remote *RemoteError
	require.ErrorAs(t, out.Err(), &remote)
	require.Equal(t, "Your budget is too low.", remote.Message)
}

func TestSendRemoteErrorShapes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		message    string
		apiMessage string
	}{
		{"NoUserMessage", http.StatusBadRequest, `{"error":{"message":"Unsupported post request","code":100}}`, "", "Unsupported post request"},
		{"StringError", http.StatusBadRequest, `{"error":"boom"}`, "", "boom"},
		{"NoErrorMember", http.StatusInternalServerError, `{"status":"bad"}`, "", ""},
		{"NonObjectBody", http.StatusBadGateway, `[1,2,3]`, "", ""},
		{"StringCodes", http.StatusBadRequest, `{"error":{"message":"x","code":"80004","error_subcode":"1"}}`, "", "x"},
		{"Created", http.StatusCreated, `{"id":"5"}`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := scriptedServer(t, scriptedReply{status: tt.status, body: tt.body})
			sleeper := &sleepRecorder{}

			out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodDelete})

			require.Equal(t, KindRemoteError, out.Kind)
			require.Equal(t, tt.message, out.Message)
			require.Equal(t, tt.apiMessage, out.Error.Message)
			require.Empty(t, sleeper.recorded())
		})
	}
}

func TestSendStringThrottleCodesAreRecognized(t *testing.T) {
	body := `{"error":{"message":"limit","code":"80004","error_subcode":"2446079"}}`
	server, _ := scriptedServer(t,
		scriptedReply{status: http.StatusBadRequest, body: body},
		scriptedReply{status: http.StatusOK, body: `{}`},
	)
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindSuccess, out.Kind)
	require.Equal(t, []time.Duration{time.Second}, sleeper.recorded())
}

func TestSendTransportErrorIsNotRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()
	sleeper := &sleepRecorder{}

	gw := &Gateway{Client: &http.Client{Timeout: time.Second}, Sleep: sleeper.sleep}
	out := gw.Send(context.Background(), Request{URL: target, Method: http.MethodPost})

	require.Equal(t, KindTransportError, out.Kind)
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 0, out.Retries)
	require.NotEmpty(t, out.Message)
	require.Empty(t, sleeper.recorded())

	var transportErr *TransportError
	require.ErrorAs(t, out.Err(), &transportErr)
}

func TestSendUndecodableBodyIsTransportError(t *testing.T) {
	server, calls := scriptedServer(t, scriptedReply{status: http.StatusOK, body: `<html>oops</html>`})
	sleeper := &sleepRecorder{}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodGet})

	require.Equal(t, KindTransportError, out.Kind)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))
	require.Contains(t, out.Message, "decode response body")
}

func TestSendInvalidURLIsTransportError(t *testing.T) {
	sleeper := &sleepRecorder{}
	gw := &Gateway{Sleep: sleeper.sleep}

	out := gw.Send(context.Background(), Request{URL: "", Method: http.MethodPost})
	require.Equal(t, KindTransportError, out.Kind)

	out = gw.Send(context.Background(), Request{URL: "://bad", Method: http.MethodPost})
	require.Equal(t, KindTransportError, out.Kind)
}

func TestSendCancelledDuringWait(t *testing.T) {
	server, calls := scriptedServer(t, scriptedReply{status: http.StatusBadRequest, body: throttleBody})
	sleeper := &sleepRecorder{err: context.Canceled}

	out := newTestGateway(server, sleeper).Send(context.Background(), Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindTransportError, out.Kind)
	require.Equal(t, int32(1), atomic.LoadInt32(calls))
	require.ErrorIs(t, out.Err(), context.Canceled)
}

func TestSendRealSleepHonoursContext(t *testing.T) {
	server, _ := scriptedServer(t, scriptedReply{status: http.StatusBadRequest, body: throttleBody})
	gw := &Gateway{Client: server.Client(), BaseWaitTime: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := gw.Send(ctx, Request{URL: server.URL, Method: http.MethodPost})

	require.Equal(t, KindTransportError, out.Kind)
	require.Less(t, time.Since(start), 5*time.Second)
	require.ErrorIs(t, out.Err(), context.DeadlineExceeded)
}

func TestSendEncodesPayloadByMethod(t *testing.T) {
	type captured struct {
		method      string
		contentType string
		auth        string
		body        string
		form        map[string][]string
	}
	var (
		mu   sync.Mutex
		seen []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
		}
		if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
			c.form = r.PostForm
		} else {
			data, _ := io.ReadAll(r.Body)
			c.body = string(data)
		}
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer server.Close()

	gw := &Gateway{Client: server.Client(), AccessToken: "secret", Sleep: (&sleepRecorder{}).sleep}
	ctx := context.Background()

	out := gw.Send(ctx, Request{URL: server.URL, Method: "post", Payload: map[string]any{
		"name":         "Spring",
		"daily_budget": 500,
		"skip":         nil,
		"targeting":    map[string]any{"geo_locations": map[string]any{"countries": []string{"US"}}},
	}})
	require.Equal(t, KindSuccess, out.Kind)

	out = gw.Send(ctx, Request{URL: server.URL, Method: http.MethodDelete})
	require.Equal(t, KindSuccess, out.Kind)

	out = gw.Send(ctx, Request{URL: server.URL, Method: http.MethodDelete, Payload: map[string]any{"ids": []string{"1"}}})
	require.Equal(t, KindSuccess, out.Kind)

	out = gw.Send(ctx, Request{
		URL:     server.URL,
		Method:  http.MethodPut,
		Payload: map[string]any{"status": "PAUSED"},
		Headers: http.Header{"Authorization": []string{"Bearer caller"}},
	})
	require.Equal(t, KindSuccess, out.Kind)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 4)

	post := seen[0]
	require.Equal(t, http.MethodPost, post.method)
	require.Equal(t, "application/x-www-form-urlencoded", post.contentType)
	require.Equal(t, "Bearer secret", post.auth)
	require.Equal(t, []string{"Spring"}, post.form["name"])
	require.Equal(t, []string{"500"}, post.form["daily_budget"])
	require.NotContains(t, post.form, "skip")
	require.JSONEq(t, `{"geo_locations":{"countries":["US"]}}`, post.form["targeting"][0])

	emptyDelete := seen[1]
	require.Equal(t, http.MethodDelete, emptyDelete.method)
	require.Empty(t, emptyDelete.body)
	require.Empty(t, emptyDelete.contentType)

	jsonDelete := seen[2]
	require.Equal(t, "application/json", jsonDelete.contentType)
	require.JSONEq(t, `{"ids":["1"]}`, jsonDelete.body)

	put := seen[3]
	require.Equal(t, http.MethodPut, put.method)
	require.Equal(t, "application/json", put.contentType)
	require.Equal(t, "Bearer caller", put.auth)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(put.body), &decoded))
	require.Equal(t, "PAUSED", decoded["status"])
}

func TestSendNonObjectSuccessBody(t *testing.T) {
	server, _ := scriptedServer(t, scriptedReply{status: http.StatusOK, body: `true`})

	out := newTestGateway(server, &sleepRecorder{}).Send(context.Background(), Request{URL: server.URL, Method: http.MethodDelete})

	require.Equal(t, KindSuccess, out.Kind)
	require.Nil(t, out.Body)
	require.Equal(t, "true", string(out.Raw))
	require.Empty(t, out.ID())
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepContext(ctx, time.Hour)
	require.True(t, errors.Is(err, context.Canceled))
	require.ErrorIs(t, SleepContext(ctx, 0), context.Canceled)
}

func TestEndpointURLs(t *testing.T) {
	e := Endpoint{AdAccountID: "42"}
	require.Equal(t, "https://graph.facebook.com/v22.0/act_42/campaigns", e.AccountURL("campaigns"))
	require.Equal(t, "https://graph.facebook.com/v22.0/123", e.ObjectURL("123"))

	e = Endpoint{BaseURL: "http://localhost:9000/", Version: "v21.0", AdAccountID: "act_7"}
	require.Equal(t, "http://localhost:9000/v21.0/act_7/adsets", e.AccountURL("/adsets"))
}
