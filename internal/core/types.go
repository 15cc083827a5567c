package core

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entity statuses accepted by the Marketing API.
const (
	StatusActive   = "ACTIVE"
	StatusPaused   = "PAUSED"
	StatusArchived = "ARCHIVED"
	StatusDeleted  = "DELETED"
)

// Bid strategies that carry extra required fields.
const (
	BidStrategyLowestCost        = "LOWEST_COST_WITHOUT_CAP"
	BidStrategyLowestCostBidCap  = "LOWEST_COST_WITH_BID_CAP"
	BidStrategyLowestCostMinROAS = "LOWEST_COST_WITH_MIN_ROAS"
	BidStrategyCostCap           = "COST_CAP"
)

// User owns every mirrored entity.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"-" json:"created_at"`
}

// Campaign mirrors a remote campaign.
type Campaign struct {
	ID                  int64  `db:"id" json:"id"`
	Name                string `db:"name" json:"name"`
	Objective           string `db:"objective" json:"objective"`
	Status              string `db:"status" json:"status"`
	SpecialAdCategories string `db:"special_ad_categories" json:"special_ad_categories"`
	MetaCampaignID      string `db:"meta_campaign_id" json:"meta_campaign_id"`
	UserID              int64  `db:"user_id" json:"user_id"`
}

// AdGroup mirrors a remote ad set.
type AdGroup struct {
	ID               int64      `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Status           string     `db:"status" json:"status"`
	DailyBudget      float64    `db:"daily_budget" json:"daily_budget"`
	Countries        StringList `db:"countries" json:"countries"`
	BillingEvent     string     `db:"billing_event" json:"billing_event"`
	BidStrategy      string     `db:"bid_strategy" json:"bid_strategy"`
	BidAmount        *float64   `db:"bid_amount" json:"bid_amount,omitempty"`
	RoasAverageFloor *float64   `db:"roas_average_floor" json:"roas_average_floor,omitempty"`
	OptimizationGoal string     `db:"optimization_goal" json:"optimization_goal"`
	Targeting        JSONObject `db:"targeting" json:"targeting,omitempty"`
	CampaignID       int64      `db:"campaign_id" json:"campaign_id"`
	MetaAdGroupID    string     `db:"meta_ad_group_id" json:"meta_ad_group_id"`
	UserID           int64      `db:"user_id" json:"user_id"`
}

// Ad mirrors a remote ad.
type Ad struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Status         string `db:"status" json:"status"`
	AdGroupID      int64  `db:"ad_group_id" json:"ad_group_id"`
	MetaAdID       string `db:"meta_ad_id" json:"meta_ad_id"`
	MetaCreativeID string `db:"meta_creative_id" json:"meta_creative_id"`
	UserID         int64  `db:"user_id" json:"user_id"`
}

// AdCreative mirrors a remote link-ad creative.
type AdCreative struct {
	ID         int64  `db:"id" json:"id"`
	CreativeID string `db:"creative_id" json:"creative_id"`
	Name       string `db:"name" json:"name"`
	PageID     string `db:"page_id" json:"page_id"`
	Link       string `db:"link" json:"link"`
	Message    string `db:"message" json:"message"`
	Image      string `db:"image" json:"image"`
	CTAType    string `db:"cta_type" json:"cta_type"`
	Caption    string `db:"caption" json:"caption"`
	UserID     int64  `db:"user_id" json:"user_id"`
}

// StringList is a JSON-encoded text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	data, err := columnBytes(src)
	if err != nil || len(data) == 0 {
		*l = nil
		return err
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	*l = out
	return nil
}

// JSONObject is a JSON-encoded object column.
type JSONObject map[string]any

// Value implements driver.Valuer.
func (o JSONObject) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]any(o))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (o *JSONObject) Scan(src any) error {
	data, err := columnBytes(src)
	if err != nil || len(data) == 0 {
		*o = nil
		return err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan json object: %w", err)
	}
	*o = out
	return nil
}

func columnBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported column type for json value")
	}
}
