//go:build cgo

package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adsmirror/adsmirror/internal/config"
	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/graph"
	"github.com/adsmirror/adsmirror/internal/core/store"
)

type scriptedSender struct {
	outcomes []graph.Outcome
	requests []graph.Request
}

func (f *scriptedSender) Send(_ context.Context, req graph.Request) graph.Outcome {
	f.requests = append(f.requests, req)
	if len(f.outcomes) == 0 {
		return succeeded(map[string]any{"success": true})
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

func (f *scriptedSender) last() graph.Request {
	return f.requests[len(f.requests)-1]
}

func succeeded(body map[string]any) graph.Outcome {
	return graph.Outcome{Kind: graph.KindSuccess, StatusCode: http.StatusOK, Body: body, Attempts: 1}
}

func created(id string) graph.Outcome {
	return succeeded(map[string]any{"id": id})
}

func rejected(msg string) graph.Outcome {
	return graph.Outcome{Kind: graph.KindRemoteError, StatusCode: http.StatusBadRequest, Message: msg, Attempts: 1}
}

type fixture struct {
	svc    *Service
	sender *scriptedSender
	store  *store.Store
	user   int64
	other  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { _ = st.Close() })

	owner, err := st.CreateUser(ctx, "owner@example.com", "hash")
	require.NoError(t, err)
	other, err := st.CreateUser(ctx, "other@example.com", "hash")
	require.NoError(t, err)

	sender := &scriptedSender{}
	endpoint := graph.Endpoint{BaseURL: "https://graph.test", Version: "v22.0", AdAccountID: "123"}
	return &fixture{
		svc:    New(sender, st, endpoint, "page-1"),
		sender: sender,
		store:  st,
		user:   owner.ID,
		other:  other.ID,
	}
}

func (f *fixture) campaign(t *testing.T, metaID string) *core.Campaign {
	t.Helper()
	f.sender.outcomes = append(f.sender.outcomes, created(metaID))
	c, err := f.svc.CreateCampaign(context.Background(), f.user, CampaignInput{
		Name: "Launch", Objective: "OUTCOME_TRAFFIC", Status: core.StatusPaused,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) adGroup(t *testing.T, campaignID int64, metaID string) *core.AdGroup {
	t.Helper()
	f.sender.outcomes = append(f.sender.outcomes, created(metaID))
	g, err := f.svc.CreateAdGroup(context.Background(), f.user, AdGroupInput{
		Name:        "Group",
		CampaignID:  campaignID,
		DailyBudget: NewNumber(5),
		Countries:   []string{"US"},
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) ad(t *testing.T, adGroupID int64, metaID string) *core.Ad {
	t.Helper()
	f.sender.outcomes = append(f.sender.outcomes, created(metaID))
	ad, err := f.svc.CreateAd(context.Background(), f.user, AdInput{Name: "Ad", AdGroupID: adGroupID, CreativeID: "cr-1"})
	require.NoError(t, err)
	return ad
}

func TestCreateCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.campaign(t, "c-100")
	require.Equal(t, "c-100", c.MetaCampaignID)
	require.Equal(t, "NONE", c.SpecialAdCategories)

	req := f.sender.last()
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "https://graph.test/v22.0/act_123/campaigns", req.URL)
	require.Equal(t, "Launch", req.Payload["name"])
	require.Equal(t, "NONE", req.Payload["special_ad_categories"])

	stored, err := f.svc.GetCampaign(ctx, f.user, c.ID)
	require.NoError(t, err)
	require.Equal(t, *c, *stored)

	_, err = f.svc.GetCampaign(ctx, f.other, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateCampaignFailuresLeaveStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CampaignInput{Name: "Launch", Objective: "OUTCOME_TRAFFIC", Status: core.StatusPaused}

	cases := []struct {
		name    string
		outcome graph.Outcome
		check   func(t *testing.T, err error)
	}{
		{
			name:    "Remote",
			outcome: rejected("Invalid objective"),
			check: func(t *testing.T, err error) {
				var oe *OutcomeError
				require.True(t, errors.As(err, &oe))
				require.Equal(t, graph.KindRemoteError, oe.Outcome.Kind)
				require.Contains(t, err.Error(), "Invalid objective")
				var re *graph.RemoteError
				require.ErrorAs(t, err, &re)
			},
		},
		{
			name:    "Exhausted",
			outcome: graph.Outcome{Kind: graph.KindRetriesExhausted, Attempts: 5, Retries: 5},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, graph.ErrRetriesExhausted)
			},
		},
		{
			name:    "Transport",
			outcome: graph.Outcome{Kind: graph.KindTransportError, Message: "connection refused"},
			check: func(t *testing.T, err error) {
				var te *graph.TransportError
				require.ErrorAs(t, err, &te)
			},
		},
		{
			name:    "MissingID",
			outcome: succeeded(map[string]any{"success": true}),
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrMissingRemoteID)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.sender.outcomes = []graph.Outcome{tc.outcome}
			_, err := f.svc.CreateCampaign(ctx, f.user, in)
			require.Error(t, err)
			tc.check(t, err)

			list, err := f.svc.ListCampaigns(ctx, f.user)
			require.NoError(t, err)
			require.Empty(t, list)
		})
	}

	sent := len(f.sender.requests)
	_, err := f.svc.CreateCampaign(ctx, f.user, CampaignInput{Objective: "OUTCOME_TRAFFIC", Status: core.StatusPaused})
	require.ErrorIs(t, err, ErrValidation)
	require.Len(t, f.sender.requests, sent, "validation failures must not reach the remote")
}

func TestUpdateAndDeleteCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "c-1")

	name := "Renamed"
	f.sender.outcomes = []graph.Outcome{rejected("nope")}
	_, err := f.svc.UpdateCampaign(ctx, f.user, c.ID, CampaignPatch{Name: &name})
	require.Error(t, err)
	unchanged, err := f.svc.GetCampaign(ctx, f.user, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Launch", unchanged.Name)

	updated, err := f.svc.UpdateCampaign(ctx, f.user, c.ID, CampaignPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, core.StatusPaused, updated.Status)
	req := f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/c-1", req.URL)
	require.Equal(t, map[string]any{"name": "Renamed", "objective": "OUTCOME_TRAFFIC", "status": core.StatusPaused}, req.Payload)

	_, err = f.svc.UpdateCampaign(ctx, f.other, c.ID, CampaignPatch{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)

	g := f.adGroup(t, c.ID, "g-1")
	f.ad(t, g.ID, "a-1")

	f.sender.outcomes = []graph.Outcome{rejected("in use")}
	require.Error(t, f.svc.DeleteCampaign(ctx, f.user, c.ID))
	_, err = f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCampaign(ctx, f.user, c.ID))
	req = f.sender.last()
	require.Equal(t, http.MethodDelete, req.Method)
	require.Nil(t, req.Payload)
	_, err = f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.ErrorIs(t, err, ErrNotFound)
	ads, err := f.svc.ListAds(ctx, f.user)
	require.NoError(t, err)
	require.Empty(t, ads)
}

func TestCreateAdGroupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "c-1")
	sent := len(f.sender.requests)

	cases := []struct {
		name  string
		in    AdGroupInput
		field string
	}{
		{name: "NoBudget", in: AdGroupInput{Name: "g", CampaignID: c.ID, Countries: []string{"US"}}, field: "daily_budget"},
		{name: "LowBudget", in: AdGroupInput{Name: "g", CampaignID: c.ID, DailyBudget: NewNumber(0.5), Countries: []string{"US"}}, field: "daily_budget"},
		{name: "BadTargeting", in: AdGroupInput{Name: "g", CampaignID: c.ID, DailyBudget: NewNumber(1), Targeting: json.RawMessage(`"{oops"`)}, field: "targeting"},
		{name: "NoTargeting", in: AdGroupInput{Name: "g", CampaignID: c.ID, DailyBudget: NewNumber(1)}, field: "targeting"},
		{name: "BidCapWithoutAmount", in: AdGroupInput{Name: "g", CampaignID: c.ID, DailyBudget: NewNumber(1), Countries: []string{"US"}, BidStrategy: core.BidStrategyLowestCostBidCap}, field: "bid_amount"},
		{name: "MinRoasWithoutGoal", in: AdGroupInput{Name: "g", CampaignID: c.ID, DailyBudget: NewNumber(1), Countries: []string{"US"}, BidStrategy: core.BidStrategyLowestCostMinROAS, RoasAverageFloor: NewNumber(2)}, field: "roas_average_floor"},
		{name: "NoCampaign", in: AdGroupInput{Name: "g", DailyBudget: NewNumber(1), Countries: []string{"US"}}, field: "campaign_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAdGroup(ctx, f.user, tc.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tc.field, ve.Field)
		})
	}
	require.Len(t, f.sender.requests, sent)

	_, err := f.svc.CreateAdGroup(ctx, f.other, AdGroupInput{Name: "g", CampaignID: c.ID, DailyBudget: NewNumber(1), Countries: []string{"US"}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAdGroupPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "c-1")

	f.sender.outcomes = []graph.Outcome{created("g-1")}
	g, err := f.svc.CreateAdGroup(ctx, f.user, AdGroupInput{
		Name:               "Bid cap",
		CampaignID:         c.ID,
		DailyBudget:        NewNumber(0.96),
		Targeting:          json.RawMessage(`"{\"geo_locations\":{\"countries\":[\"US\",\"CA\"]}}"`),
		BillingEvent:       "IMPRESSIONS",
		BidStrategy:        core.BidStrategyLowestCostBidCap,
		BidAmount:          NewNumber(150),
		ConversionLocation: "Website",
	})
	require.NoError(t, err)

	req := f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/act_123/adsets", req.URL)
	require.Equal(t, "c-1", req.Payload["campaign_id"])
	require.Equal(t, 150.0, req.Payload["bid_amount"])
	require.NotContains(t, req.Payload, "roas_average_floor")
	require.Equal(t, "LANDING_PAGE_VIEWS", req.Payload["optimization_goal"])
	require.Equal(t, core.StatusActive, req.Payload["status"])

	require.Equal(t, "g-1", g.MetaAdGroupID)
	require.Equal(t, core.StatusActive, g.Status)
	require.Equal(t, core.StringList{"US", "CA"}, g.Countries)
	require.NotNil(t, g.BidAmount)

	stored, err := f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.NoError(t, err)
	require.Equal(t, "US", stored.Targeting["geo_locations"].(map[string]any)["countries"].([]any)[0])

	f.sender.outcomes = []graph.Outcome{created("g-2")}
	roas, err := f.svc.CreateAdGroup(ctx, f.user, AdGroupInput{
		Name:             "ROAS",
		CampaignID:       c.ID,
		DailyBudget:      NewNumber(10),
		Countries:        []string{"DE"},
		BidStrategy:      core.BidStrategyLowestCostMinROAS,
		RoasAverageFloor: NewNumber(1.5),
		OptimizationGoal: "VALUE",
	})
	require.NoError(t, err)
	req = f.sender.last()
	require.Equal(t, 1.5, req.Payload["roas_average_floor"])
	require.NotContains(t, req.Payload, "bid_amount")
	require.Equal(t, "VALUE", roas.OptimizationGoal)
}

func TestUpdateAdGroupTargeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "c-1")
	g := f.adGroup(t, c.ID, "g-1")

	name := "Renamed"
	status := core.StatusPaused
	updated, err := f.svc.UpdateAdGroup(ctx, f.user, g.ID, AdGroupPatch{
		Name:        &name,
		Status:      &status,
		DailyBudget: NewNumber(7),
		Targeting:   json.RawMessage(`{"geo_locations":{"countries":"[\"FR\"]"}}`),
	})
	require.NoError(t, err)

	req := f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/g-1", req.URL)
	require.Equal(t, map[string]any{
		"name":         "Renamed",
		"daily_budget": 7.0,
		"targeting": map[string]any{
			"geo_locations":      map[string]any{"countries": []string{"FR"}},
			"facebook_positions": defaultPositions,
		},
	}, req.Payload)
	require.NotContains(t, req.Payload, "status")

	require.Equal(t, core.StatusPaused, updated.Status)
	require.Equal(t, core.StringList{"FR"}, updated.Countries)
	stored, err := f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", stored.Name)
	require.InDelta(t, 7.0, stored.DailyBudget, 0.0001)

	_, err = f.svc.UpdateAdGroup(ctx, f.user, g.ID, AdGroupPatch{DailyBudget: NewNumber(0.1)})
	require.ErrorIs(t, err, ErrValidation)

	f.sender.outcomes = []graph.Outcome{rejected("budget too low")}
	_, err = f.svc.UpdateAdGroup(ctx, f.user, g.ID, AdGroupPatch{DailyBudget: NewNumber(1)})
	require.Error(t, err)
	stored, err = f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.NoError(t, err)
	require.InDelta(t, 7.0, stored.DailyBudget, 0.0001)
}

func TestDeleteAdGroupPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "c-1")
	g := f.adGroup(t, c.ID, "g-1")
	first := f.ad(t, g.ID, "a-1")
	second := f.ad(t, g.ID, "a-2")

	f.sender.outcomes = []graph.Outcome{succeeded(map[string]any{"success": true}), rejected("ad locked")}
	err := f.svc.DeleteAdGroup(ctx, f.user, g.ID)
	require.Error(t, err)

	_, err = f.svc.GetAd(ctx, f.user, first.ID)
	require.ErrorIs(t, err, ErrNotFound, "remotely deleted ad is removed locally")
	_, err = f.svc.GetAd(ctx, f.user, second.ID)
	require.NoError(t, err)
	_, err = f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAdGroup(ctx, f.user, g.ID))
	last := f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/g-1", last.URL)
	_, err = f.svc.GetAdGroup(ctx, f.user, g.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "c-1")
	g := f.adGroup(t, c.ID, "g-1")

	_, err := f.svc.CreateAd(ctx, f.user, AdInput{Name: "Ad", AdGroupID: g.ID})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.CreateAd(ctx, f.other, AdInput{Name: "Ad", AdGroupID: g.ID, CreativeID: "cr"})
	require.ErrorIs(t, err, ErrNotFound)

	ad := f.ad(t, g.ID, "a-1")
	req := f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/act_123/ads", req.URL)
	require.Equal(t, "g-1", req.Payload["adset_id"])
	require.Equal(t, map[string]any{"creative_id": "cr-1"}, req.Payload["creative"])
	require.Equal(t, core.StatusActive, ad.Status)

	status := core.StatusPaused
	creative := "cr-2"
	updated, err := f.svc.UpdateAd(ctx, f.user, ad.ID, AdPatch{Status: &status, CreativeID: &creative})
	require.NoError(t, err)
	require.Equal(t, core.StatusPaused, updated.Status)
	require.Equal(t, "cr-2", updated.MetaCreativeID)
	req = f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/a-1", req.URL)
	require.Equal(t, map[string]any{"creative_id": "cr-2"}, req.Payload["creative"])

	f.sender.outcomes = []graph.Outcome{rejected("cannot delete")}
	require.Error(t, f.svc.DeleteAd(ctx, f.user, ad.ID))
	_, err = f.svc.GetAd(ctx, f.user, ad.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAd(ctx, f.user, ad.ID))
	_, err = f.svc.GetAd(ctx, f.user, ad.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sender.outcomes = []graph.Outcome{created("cr-9")}
	cr, err := f.svc.CreateCreative(ctx, f.user, CreativeInput{
		Name: "Hero", Link: "https://example.com", Message: "Hello", Image: "https://img", CTAType: "LEARN_MORE",
	})
	require.NoError(t, err)
	require.Equal(t, "cr-9", cr.CreativeID)
	require.Equal(t, "page-1", cr.PageID)

	req := f.sender.last()
	require.Equal(t, "https://graph.test/v22.0/act_123/adcreatives", req.URL)
	spec := req.Payload["object_story_spec"].(map[string]any)
	require.Equal(t, "page-1", spec["page_id"])
	link := spec["link_data"].(map[string]any)
	require.Equal(t, "https://img", link["picture"])
	require.Equal(t, map[string]any{"type": "LEARN_MORE"}, link["call_to_action"])

	_, err = f.svc.GetCreative(ctx, f.other, cr.ID)
	require.ErrorIs(t, err, ErrNotFound)

	caption := "example.com"
	_, err = f.svc.UpdateCreative(ctx, f.other, cr.ID, CreativePatch{Caption: &caption})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.UpdateCreative(ctx, f.user, cr.ID, CreativePatch{Caption: &caption})
	require.NoError(t, err)
	require.Equal(t, "example.com", updated.Caption)
	require.True(t, strings.HasSuffix(f.sender.last().URL, "/cr-9"))

	require.ErrorIs(t, f.svc.DeleteCreative(ctx, f.other, cr.ID), ErrForbidden)
	require.NoError(t, f.svc.DeleteCreative(ctx, f.user, cr.ID))
	list, err := f.svc.ListCreatives(ctx, f.user)
	require.NoError(t, err)
	require.Empty(t, list)
}
