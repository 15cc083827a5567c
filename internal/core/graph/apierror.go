package graph

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Throttling is signalled by this code/subcode pair on the error object.
const (
	ThrottleCode    = 80004
	ThrottleSubcode = 2446079
)

// APIError is the normalized form of the "error" member of a Graph response.
type APIError struct {
	Message     string `json:"message,omitempty"`
	Type        string `json:"type,omitempty"`
	Code        int    `json:"code,omitempty"`
	Subcode     int    `json:"error_subcode,omitempty"`
	UserTitle   string `json:"error_user_title,omitempty"`
	UserMessage string `json:"error_user_msg,omitempty"`
	FBTraceID   string `json:"fbtrace_id,omitempty"`
}

// IsThrottle reports whether the error is the ads-management throttle signal.
func (e *APIError) IsThrottle() bool {
	return e != nil && e.Code == ThrottleCode && e.Subcode == ThrottleSubcode
}

// parseAPIError accepts an object, a bare string, or nothing.
func parseAPIError(body map[string]any) *APIError {
	if body == nil {
		return &APIError{}
	}
	switch v := body["error"].(type) {
	case map[string]any:
		apiErr := &APIError{
			Message:     stringValue(v["message"]),
			Type:        stringValue(v["type"]),
			UserTitle:   stringValue(v["error_user_title"]),
			UserMessage: stringValue(v["error_user_msg"]),
			FBTraceID:   stringValue(v["fbtrace_id"]),
		}
		apiErr.Code, _ = intValue(v["code"])
		apiErr.Subcode, _ = intValue(v["error_subcode"])
		return apiErr
	case string:
		return &APIError{Message: v}
	default:
		return &APIError{}
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func intValue(v any) (int, bool) {
	f, ok := floatValue(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func floatValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
