package graph

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// UsageHeader carries per-business usage and regain-access estimates.
const UsageHeader = "X-Business-Use-Case-Usage"

const regainAccessField = "estimated_time_to_regain_access"

// ParseUsageHint extracts estimated_time_to_regain_access, in minutes, from a
// usage header value. Categories are visited in sorted key order and limit
// descriptors in array order; the first descriptor carrying the field decides.
// Malformed input, a missing field, or a first value that is not a positive
// number yields ok == false.
func ParseUsageHint(header string) (minutes float64, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}

	var usage map[string]json.RawMessage
	if err := json.Unmarshal([]byte(header), &usage); err != nil {
		return 0, false
	}

	keys := make([]string, 0, len(usage))
	for key := range usage {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var limits []map[string]any
		if err := json.Unmarshal(usage[key], &limits); err != nil {
			continue
		}
		for _, limit := range limits {
			value, present := limit[regainAccessField]
			if !present {
				continue
			}
			m, valid := floatValue(value)
			if !valid || m <= 0 {
				return 0, false
			}
			return m, true
		}
	}

	return 0, false
}

// HintDelay converts a parsed hint into a wait duration.
func HintDelay(minutes float64) time.Duration {
	if minutes <= 0 {
		return 0
	}
	return time.Duration(minutes * float64(time.Minute))
}
