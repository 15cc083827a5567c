package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies the terminal result of a gateway call.
type Kind int

const (
	KindSuccess Kind = iota
	KindRemoteError
	KindTransportError
	KindRetriesExhausted
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRemoteError:
		return "remote_error"
	case KindTransportError:
		return "transport_error"
	case KindRetriesExhausted:
		return "retries_exhausted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is a step of the send loop. Throttling never escapes the loop; it is
// visible only through the states it passes through.
type State string

const (
	StateDispatching        State = "dispatching"
	StateAwaitingServerHint State = "awaiting_server_hint"
	StateBackingOff         State = "backing_off"
	StateDone               State = "done"
)

// Outcome is the single result type returned by Gateway.Send.
type Outcome struct {
	Kind       Kind `json:"kind"`
	StatusCode int  `json:"status_code,omitempty"`

	// Body is the decoded response when it is a JSON object.
	Body map[string]any `json:"body,omitempty"`
	// Raw holds the response body exactly as received.
	Raw json.RawMessage `json:"raw,omitempty"`

	// Message is error_user_msg for remote errors and the failure text for
	// transport errors. Empty when the remote supplied no user message.
	Message string    `json:"message,omitempty"`
	Error   *APIError `json:"error,omitempty"`

	Attempts    int     `json:"attempts"`
	Retries     int     `json:"retries"`
	Transitions []State `json:"transitions,omitempty"`

	cause error
}

// OK reports whether the remote confirmed the mutation.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// ID returns the "id" field of a success body, if any.
func (o Outcome) ID() string {
	if o.Body == nil {
		return ""
	}
	return stringValue(o.Body["id"])
}

// DetailMessage returns the best human-readable description of a failure.
func (o Outcome) DetailMessage() string {
	if o.Message != "" {
		return o.Message
	}
	if o.Error != nil && o.Error.Message != "" {
		return o.Error.Message
	}
	switch o.Kind {
	case KindRetriesExhausted:
		return "rate limit retries exhausted"
	case KindRemoteError:
		return "remote rejected the request"
	case KindTransportError:
		return "remote request failed"
	default:
		return ""
	}
}

// Err converts a non-success outcome into a typed error.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindSuccess:
		return nil
	case KindRemoteError:
		return &RemoteError{StatusCode: o.StatusCode, Message: o.Message, API: o.Error}
	case KindTransportError:
		return &TransportError{Message: o.Message, Cause: o.cause}
	case KindRetriesExhausted:
		return &RetriesExhaustedError{Attempts: o.Attempts, Retries: o.Retries}
	default:
		return fmt.Errorf("unknown outcome kind %s", o.Kind)
	}
}

// ErrRetriesExhausted matches any RetriesExhaustedError via errors.Is.
var ErrRetriesExhausted = errors.New("graph: rate limit retries exhausted")

// RemoteError is an application-level rejection that is not throttling.
type RemoteError struct {
	StatusCode int
	Message    string
	API        *APIError
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.API != nil {
		msg = e.API.Message
	}
	if msg == "" {
		msg = "request rejected"
	}
	return fmt.Sprintf("graph: remote error (status %d): %s", e.StatusCode, msg)
}

// TransportError reports a call that could not complete.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	return "graph: transport error: " + e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RetriesExhaustedError reports that the server kept throttling.
type RetriesExhaustedError struct {
	Attempts int
	Retries  int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("graph: rate limit retries exhausted after %d attempts", e.Attempts)
}

func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}
