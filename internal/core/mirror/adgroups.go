package mirror

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core"
)

// MinDailyBudget is the smallest daily budget the account accepts, in
// account currency units.
const MinDailyBudget = 0.96

// defaultPositions is sent when an update names no placements.
var defaultPositions = []string{"feed"}

// CreateAdGroup creates an ad set under one of the user's campaigns.
func (s *Service) CreateAdGroup(ctx context.Context, userID int64, in AdGroupInput) (*core.AdGroup, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if in.CampaignID <= 0 {
		return nil, invalid("campaign_id", "is required")
	}
	if err := checkBudget(in.DailyBudget, true); err != nil {
		return nil, err
	}

	targeting, err := parseObject("targeting", in.Targeting)
	if err != nil {
		return nil, err
	}
	countries := in.Countries
	if targeting == nil {
		if len(countries) == 0 {
			return nil, invalid("targeting", "is required")
		}
		targeting = map[string]any{"geo_locations": map[string]any{"countries": countries}}
	}
	if len(countries) == 0 {
		if countries, err = targetCountries(targeting); err != nil {
			return nil, err
		}
	}

	strategy := strings.TrimSpace(in.BidStrategy)
	switch strategy {
	case core.BidStrategyLowestCostBidCap:
		if !in.BidAmount.Set || in.BidAmount.Value == 0 {
			return nil, invalid("bid_amount", "is required for %s", strategy)
		}
	case core.BidStrategyLowestCostMinROAS:
		if !in.RoasAverageFloor.Set || in.RoasAverageFloor.Value == 0 || strings.TrimSpace(in.OptimizationGoal) == "" {
			return nil, invalid("roas_average_floor", "roas_average_floor and optimization_goal are required for %s", strategy)
		}
	}

	campaign, err := s.GetCampaign(ctx, userID, in.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.MetaCampaignID == "" {
		return nil, invalid("campaign_id", "campaign has no remote id")
	}

	goal := ResolveOptimizationGoal(campaign.Objective, in.ConversionLocation, in.OptimizationGoal)
	payload := map[string]any{
		"name":              in.Name,
		"daily_budget":      in.DailyBudget.Value,
		"campaign_id":       campaign.MetaCampaignID,
		"targeting":         targeting,
		"optimization_goal": goal,
		"status":            core.StatusActive,
	}
	if in.BillingEvent != "" {
		payload["billing_event"] = in.BillingEvent
	}
	if strategy != "" {
		payload["bid_strategy"] = strategy
	}
	switch strategy {
	case core.BidStrategyLowestCostBidCap:
		payload["bid_amount"] = in.BidAmount.Value
	case core.BidStrategyLowestCostMinROAS:
		payload["roas_average_floor"] = in.RoasAverageFloor.Value
	}

	metaID, _, err := s.sendCreate(ctx, "create_ad_group", s.Endpoint.AccountURL("adsets"), payload)
	if err != nil {
		return nil, err
	}

	g := &core.AdGroup{
		Name:             in.Name,
		Status:           core.StatusActive,
		DailyBudget:      in.DailyBudget.Value,
		Countries:        core.StringList(countries),
		BillingEvent:     in.BillingEvent,
		BidStrategy:      strategy,
		BidAmount:        in.BidAmount.Ptr(),
		RoasAverageFloor: in.RoasAverageFloor.Ptr(),
		OptimizationGoal: goal,
		Targeting:        core.JSONObject(targeting),
		CampaignID:       campaign.ID,
		MetaAdGroupID:    metaID,
		UserID:           userID,
	}
	if err := s.Store.CreateAdGroup(ctx, g); err != nil {
		return nil, err
	}
	s.logMutation("Ad group created", zap.Int64("id", g.ID), zap.String("meta_id", metaID))
	return g, nil
}

// GetAdGroup returns one of the user's ad groups.
func (s *Service) GetAdGroup(ctx context.Context, userID, id int64) (*core.AdGroup, error) {
	g, err := s.Store.GetAdGroup(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "ad group", id)
	}
	return g, nil
}

// ListAdGroups returns the user's ad groups.
func (s *Service) ListAdGroups(ctx context.Context, userID int64) ([]core.AdGroup, error) {
	return s.Store.ListAdGroups(ctx, userID)
}

// UpdateAdGroup sends the supplied fields with a simplified targeting spec.
// Targeting always carries the country list and placements, defaulting the
// placements to the feed.
func (s *Service) UpdateAdGroup(ctx context.Context, userID, id int64, patch AdGroupPatch) (*core.AdGroup, error) {
	g, err := s.GetAdGroup(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := checkBudget(patch.DailyBudget, false); err != nil {
		return nil, err
	}

	targeting, err := parseObject("targeting", patch.Targeting)
	if err != nil {
		return nil, err
	}
	countries := []string(g.Countries)
	var positions any = defaultPositions
	if targeting != nil {
		if geo, ok := targeting["geo_locations"].(map[string]any); ok {
			if _, present := geo["countries"]; present {
				if countries, err = stringList("targeting.geo_locations.countries", geo["countries"]); err != nil {
					return nil, err
				}
			}
		}
		if p, ok := targeting["facebook_positions"]; ok && p != nil {
			positions = p
		}
	}
	if countries == nil {
		countries = []string{}
	}
	simplified := map[string]any{
		"geo_locations":      map[string]any{"countries": countries},
		"facebook_positions": positions,
	}

	payload := map[string]any{"targeting": simplified}
	if patch.Name != nil {
		payload["name"] = *patch.Name
	}
	if patch.BillingEvent != nil {
		payload["billing_event"] = *patch.BillingEvent
	}
	if patch.OptimizationGoal != nil {
		payload["optimization_goal"] = *patch.OptimizationGoal
	}
	if patch.BidAmount.Set {
		payload["bid_amount"] = patch.BidAmount.Value
	}
	if patch.DailyBudget.Set {
		payload["daily_budget"] = patch.DailyBudget.Value
	}

	if _, err := s.send(ctx, "update_ad_group", http.MethodPost, s.Endpoint.ObjectURL(g.MetaAdGroupID), payload); err != nil {
		return nil, err
	}

	next := *g
	next.Name = valueOr(patch.Name, g.Name)
	next.Status = valueOr(patch.Status, g.Status)
	next.BillingEvent = valueOr(patch.BillingEvent, g.BillingEvent)
	next.OptimizationGoal = valueOr(patch.OptimizationGoal, g.OptimizationGoal)
	if patch.DailyBudget.Set {
		next.DailyBudget = patch.DailyBudget.Value
	}
	if patch.BidAmount.Set {
		next.BidAmount = patch.BidAmount.Ptr()
	}
	next.Countries = core.StringList(countries)
	next.Targeting = core.JSONObject(simplified)

	if err := s.Store.UpdateAdGroup(ctx, &next); err != nil {
		return nil, notFound(err, "ad group", id)
	}
	return &next, nil
}

// DeleteAdGroup deletes the ad group's ads and then the ad set remotely. If a
// remote delete fails, the ads already deleted remotely are removed locally
// and the rest of the hierarchy is kept.
func (s *Service) DeleteAdGroup(ctx context.Context, userID, id int64) error {
	g, err := s.GetAdGroup(ctx, userID, id)
	if err != nil {
		return err
	}
	ads, err := s.Store.ListAdsByAdGroup(ctx, g.ID)
	if err != nil {
		return err
	}

	var removed []int64
	for _, ad := range ads {
		if ad.MetaAdID == "" {
			continue
		}
		if _, err := s.send(ctx, "delete_ad", http.MethodDelete, s.Endpoint.ObjectURL(ad.MetaAdID), nil); err != nil {
			return s.keepRemoved(ctx, userID, removed, err)
		}
		removed = append(removed, ad.ID)
	}

	if _, err := s.send(ctx, "delete_ad_group", http.MethodDelete, s.Endpoint.ObjectURL(g.MetaAdGroupID), nil); err != nil {
		return s.keepRemoved(ctx, userID, removed, err)
	}

	if err := s.Store.DeleteAdGroupCascade(ctx, userID, id); err != nil {
		return notFound(err, "ad group", id)
	}
	s.logMutation("Ad group deleted", zap.Int64("id", id), zap.Int("ads", len(ads)))
	return nil
}

// keepRemoved drops local rows whose remote counterpart is already gone and
// returns cause.
func (s *Service) keepRemoved(ctx context.Context, userID int64, ids []int64, cause error) error {
	if len(ids) == 0 {
		return cause
	}
	if err := s.Store.DeleteAds(ctx, userID, ids); err != nil && s.Logger != nil {
		s.Logger.Error("Failed to remove remotely deleted ads", zap.Int64s("ids", ids), zap.Error(err))
	}
	return cause
}

func checkBudget(n Number, need bool) error {
	if !n.Set {
		if need {
			return invalid("daily_budget", "is required")
		}
		return nil
	}
	if n.Value < MinDailyBudget {
		return invalid("daily_budget", "must be at least %.2f", MinDailyBudget)
	}
	return nil
}

func targetCountries(targeting map[string]any) ([]string, error) {
	geo, ok := targeting["geo_locations"].(map[string]any)
	if !ok {
		return nil, nil
	}
	return stringList("targeting.geo_locations.countries", geo["countries"])
}
