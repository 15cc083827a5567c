package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number accepts a JSON number or a numeric string. Null and "" leave it unset.
type Number struct {
	Value float64
	Set   bool
}

// NewNumber returns a set Number.
func NewNumber(v float64) Number {
	return Number{Value: v, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			*n = Number{}
			return nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid number %q", text)
	}
	*n = Number{Value: v, Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value as a pointer, nil when unset.
func (n Number) Ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// CampaignInput creates a campaign.
type CampaignInput struct {
	Name                string `json:"name"`
	Objective           string `json:"objective"`
	Status              string `json:"status"`
	SpecialAdCategories string `json:"special_ad_categories"`
}

// CampaignPatch updates a campaign; nil fields keep their value.
type CampaignPatch struct {
	Name      *string `json:"name"`
	Objective *string `json:"objective"`
	Status    *string `json:"status"`
}

// AdGroupInput creates an ad group.
type AdGroupInput struct {
	Name               string          `json:"name"`
	CampaignID         int64           `json:"campaign_id"`
	DailyBudget        Number          `json:"daily_budget"`
	Countries          []string        `json:"countries"`
	Targeting          json.RawMessage `json:"targeting"`
	BillingEvent       string          `json:"billing_event"`
	BidStrategy        string          `json:"bid_strategy"`
	BidAmount          Number          `json:"bid_amount"`
	RoasAverageFloor   Number          `json:"roas_average_floor"`
	OptimizationGoal   string          `json:"optimization_goal"`
	ConversionLocation string          `json:"conversion_location"`
}

// AdGroupPatch updates an ad group; unset fields keep their value.
type AdGroupPatch struct {
	Name             *string         `json:"name"`
	Status           *string         `json:"status"`
	DailyBudget      Number          `json:"daily_budget"`
	BillingEvent     *string         `json:"billing_event"`
	OptimizationGoal *string         `json:"optimization_goal"`
	BidAmount        Number          `json:"bid_amount"`
	Targeting        json.RawMessage `json:"targeting"`
}

// AdInput creates an ad under a local ad group.
type AdInput struct {
	Name       string `json:"name"`
	AdGroupID  int64  `json:"ad_group_id"`
	CreativeID string `json:"creative_id"`
	Status     string `json:"status"`
}

// AdPatch updates an ad; nil fields keep their value.
type AdPatch struct {
	Name       *string `json:"name"`
	Status     *string `json:"status"`
	CreativeID *string `json:"creative_id"`
}

// CreativeInput creates a link-ad creative.
type CreativeInput struct {
	Name    string `json:"name"`
	PageID  string `json:"page_id"`
	Link    string `json:"link"`
	Message string `json:"message"`
	Image   string `json:"image"`
	CTAType string `json:"cta_type"`
	Caption string `json:"caption"`
}

// CreativePatch updates a creative; nil fields keep their value.
type CreativePatch struct {
	Name    *string `json:"name"`
	Link    *string `json:"link"`
	Message *string `json:"message"`
	Image   *string `json:"image"`
	CTAType *string `json:"cta_type"`
	Caption *string `json:"caption"`
}

// parseObject accepts a JSON object or a JSON string that encodes one.
// An absent value yields nil without error.
func parseObject(field string, raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, invalid(field, "invalid JSON")
		}
		if strings.TrimSpace(encoded) == "" {
			return nil, nil
		}
		raw = json.RawMessage(encoded)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, invalid(field, "must be a JSON object")
	}
	if obj == nil {
		return nil, invalid(field, "must be a JSON object")
	}
	return obj, nil
}

// stringList reads a list of strings, also accepting a JSON-encoded list.
func stringList(field string, v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(field, "must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return nil, invalid(field, "must be a list of strings")
		}
		return out, nil
	default:
		return nil, invalid(field, "must be a list of strings")
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
