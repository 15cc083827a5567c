//go:build cgo

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsmirror/adsmirror/internal/config"
	"github.com/adsmirror/adsmirror/internal/core/auth"
	"github.com/adsmirror/adsmirror/internal/core/graph"
	"github.com/adsmirror/adsmirror/internal/core/mirror"
	"github.com/adsmirror/adsmirror/internal/core/store"
)

// fakeGraph answers every create with a fresh ID and records the paths hit.
type fakeGraph struct {
	mu    sync.Mutex
	next  int
	paths []string
}

func (g *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.paths = append(g.paths, r.Method+" "+r.URL.Path)
	g.next++
	id := g.next
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v22.0/act_") {
		_, _ = fmt.Fprintf(w, `{"id":"%d"}`, 1000+id)
		return
	}
	_, _ = w.Write([]byte(`{"success":true}`))
}

func (g *fakeGraph) hits() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.paths...)
}

type apiClient struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(data)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func newAPI(t *testing.T) (*apiClient, *fakeGraph) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { _ = st.Close() })

	fg := &fakeGraph{}
	upstream := httptest.NewServer(fg)
	t.Cleanup(upstream.Close)

	gateway := graph.New(graph.Config{AccessToken: "token", MaxRetries: 1, BaseWaitTime: time.Millisecond})
	gateway.Sleep = func(context.Context, time.Duration) error { return nil }

	endpoint := graph.Endpoint{BaseURL: upstream.URL, Version: "v22.0", AdAccountID: "123"}
	authSvc, err := auth.NewService(st, "test-secret", time.Hour, "adsmirror")
	require.NoError(t, err)

	srv := New(Options{
		Auth:   authSvc,
		Tokens: authSvc,
		Mirror: mirror.New(gateway, st, endpoint, "page-1"),
	})
	return &apiClient{t: t, h: srv.Handler()}, fg
}

func TestAPIEndToEnd(t *testing.T) {
	client, fg := newAPI(t)

	require.Equal(t, http.StatusUnauthorized, client.do(http.MethodGet, "/api/campaigns", nil, nil))

	creds := map[string]string{"email": "owner@example.com", "password": "secret1"}
	require.Equal(t, http.StatusCreated, client.do(http.MethodPost, "/api/register", creds, nil))

	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.Equal(t, http.StatusOK, client.do(http.MethodPost, "/api/login", creds, &login))
	require.NotEmpty(t, login.AccessToken)
	client.token = login.AccessToken

	var campaign struct {
		ID             int64  `json:"id"`
		MetaCampaignID string `json:"meta_campaign_id"`
	}
	status := client.do(http.MethodPost, "/api/campaigns", map[string]any{
		"name": "Spring", "objective": "OUTCOME_TRAFFIC", "status": "PAUSED",
	}, &campaign)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, campaign.MetaCampaignID)

	var groups []map[string]any
	require.Equal(t, http.StatusOK, client.do(http.MethodGet, "/api/ad-sets", nil, &groups))
	assert.Empty(t, groups)

	var group struct {
		ID int64 `json:"id"`
	}
	status = client.do(http.MethodPost, "/api/ad-groups", map[string]any{
		"name": "US feed", "campaign_id": campaign.ID, "daily_budget": "5",
		"countries": []string{"US"}, "billing_event": "IMPRESSIONS",
	}, &group)
	require.Equal(t, http.StatusCreated, status)

	status = client.do(http.MethodPost, "/api/ad-groups", map[string]any{
		"name": "Too cheap", "campaign_id": campaign.ID, "daily_budget": 0.5,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var creative struct {
		CreativeID string `json:"creative_id"`
	}
	require.Equal(t, http.StatusCreated, client.do(http.MethodPost, "/api/ad-creatives", map[string]any{
		"name": "Hero", "link": "https://example.com", "cta_type": "LEARN_MORE",
	}, &creative))

	var ad struct {
		ID int64 `json:"id"`
	}
	require.Equal(t, http.StatusCreated, client.do(http.MethodPost, "/api/create-ad", map[string]any{
		"name": "Ad 1", "ad_group_id": group.ID, "creative_id": creative.CreativeID,
	}, &ad))
	require.Equal(t, http.StatusOK, client.do(http.MethodGet, fmt.Sprintf("/api/ad/%d", ad.ID), nil, nil))
	require.Equal(t, http.StatusOK, client.do(http.MethodPut, fmt.Sprintf("/api/edit-ad/%d", ad.ID), map[string]any{"status": "PAUSED"}, nil))

	require.Equal(t, http.StatusOK, client.do(http.MethodDelete, fmt.Sprintf("/api/campaigns/%d", campaign.ID), nil, nil))
	require.Equal(t, http.StatusNotFound, client.do(http.MethodGet, fmt.Sprintf("/api/ads/%d", ad.ID), nil, nil))

	hits := fg.hits()
	assert.Contains(t, hits, "POST /v22.0/act_123/campaigns")
	assert.Contains(t, hits, "POST /v22.0/act_123/adsets")
	assert.Contains(t, hits, "POST /v22.0/act_123/adcreatives")
	assert.Contains(t, hits, "POST /v22.0/act_123/ads")
	assert.Contains(t, hits, "DELETE /v22.0/"+campaign.MetaCampaignID)
}

func TestAPIScopesRowsToUser(t *testing.T) {
	client, _ := newAPI(t)

	tokens := make([]string, 2)
	for i, email := range []string{"a@example.com", "b@example.com"} {
		creds := map[string]string{"email": email, "password": "secret1"}
		require.Equal(t, http.StatusCreated, client.do(http.MethodPost, "/api/register", creds, nil))
		var login struct {
			AccessToken string `json:"access_token"`
		}
		require.Equal(t, http.StatusOK, client.do(http.MethodPost, "/api/login", creds, &login))
		tokens[i] = login.AccessToken
	}

	client.token = tokens[0]
	var campaign struct {
		ID int64 `json:"id"`
	}
	require.Equal(t, http.StatusCreated, client.do(http.MethodPost, "/api/campaigns", map[string]any{
		"name": "Mine", "objective": "OUTCOME_AWARENESS",
	}, &campaign))

	client.token = tokens[1]
	require.Equal(t, http.StatusNotFound, client.do(http.MethodGet, fmt.Sprintf("/api/campaigns/%d", campaign.ID), nil, nil))
	var list []map[string]any
	require.Equal(t, http.StatusOK, client.do(http.MethodGet, "/api/campaigns", nil, &list))
	assert.Empty(t, list)
}
