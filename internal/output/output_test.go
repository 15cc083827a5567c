package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/graph"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestCampaigns(t *testing.T) {
	items := []core.Campaign{
		{ID: 1, Name: "Spring", Objective: "OUTCOME_TRAFFIC", Status: core.StatusPaused, MetaCampaignID: "120200"},
		{ID: 2, Name: "Draft", Objective: "OUTCOME_SALES", Status: core.StatusActive},
	}

	rendered, err := Campaigns(FormatTable, items)
	require.NoError(t, err)
	require.Contains(t, rendered, "OBJECTIVE")
	require.Contains(t, rendered, "Spring")
	require.Contains(t, rendered, "120200")
	require.Contains(t, rendered, "2 total")
	require.NotContains(t, rendered, "2 TOTAL")

	md, err := Campaigns(FormatMarkdown, items)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(md, "|"), md)

	js, err := Campaigns(FormatJSON, items)
	require.NoError(t, err)
	var decoded []core.Campaign
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	require.Equal(t, items, decoded)
}

func TestEmptyLists(t *testing.T) {
	rendered, err := AdGroups(FormatTable, nil)
	require.NoError(t, err)
	require.Equal(t, "(no ad groups)", rendered)

	js, err := Ads(FormatJSON, nil)
	require.NoError(t, err)
	require.Equal(t, "[]", js)
}

func TestAdGroupsAndCreatives(t *testing.T) {
	groups, err := AdGroups(FormatTable, []core.AdGroup{{
		ID:               4,
		Name:             "US only",
		CampaignID:       1,
		Status:           core.StatusActive,
		DailyBudget:      12.5,
		Countries:        core.StringList{"US", "CA"},
		OptimizationGoal: "LINK_CLICKS",
	}})
	require.NoError(t, err)
	require.Contains(t, groups, "12.50")
	require.Contains(t, groups, "US,CA")

	creatives, err := Creatives(FormatTable, []core.AdCreative{{ID: 9, Name: "Hero", Link: "https://example.com"}})
	require.NoError(t, err)
	require.Contains(t, creatives, "https://example.com")
}

func TestOutcome(t *testing.T) {
	success := graph.Outcome{
		Kind:        graph.KindSuccess,
		StatusCode:  200,
		Body:        map[string]any{"id": "777"},
		Attempts:    2,
		Retries:     1,
		Transitions: []graph.State{graph.StateDispatching, graph.StateBackingOff, graph.StateDispatching, graph.StateDone},
	}
	rendered, err := Outcome(FormatTable, success)
	require.NoError(t, err)
	require.Contains(t, rendered, "success")
	require.Contains(t, rendered, "777")
	require.Contains(t, rendered, "dispatching > backing_off")

	remote := graph.Outcome{
		Kind:       graph.KindRemoteError,
		StatusCode: 400,
		Message:    "Invalid parameter",
		Error:      &graph.APIError{Code: 100, Subcode: 33, FBTraceID: "AbC"},
		Attempts:   1,
	}
	rendered, err = Outcome(FormatTable, remote)
	require.NoError(t, err)
	require.Contains(t, rendered, "Invalid parameter")
	require.Contains(t, rendered, "100/33")
	require.Contains(t, rendered, "AbC")

	js, err := Outcome(FormatJSON, remote)
	require.NoError(t, err)
	require.Contains(t, js, `"status_code": 400`)
}
