package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/graph"
)

// Campaigns renders mirrored campaigns.
func Campaigns(format Format, items []core.Campaign) (string, error) {
	if format == FormatJSON {
		return JSON(items)
	}
	g := grid{
		header: table.Row{"ID", "Name", "Objective", "Status", "Meta ID"},
		empty:  "(no campaigns)",
	}
	for _, c := range items {
		g.rows = append(g.rows, table.Row{c.ID, c.Name, c.Objective, c.Status, orDash(c.MetaCampaignID)})
	}
	g.footer = countFooter(len(items), len(g.header))
	return g.render(format), nil
}

// AdGroups renders mirrored ad groups.
func AdGroups(format Format, items []core.AdGroup) (string, error) {
	if format == FormatJSON {
		return JSON(items)
	}
	g := grid{
		header: table.Row{"ID", "Name", "Campaign", "Status", "Daily Budget", "Countries", "Goal", "Meta ID"},
		empty:  "(no ad groups)",
	}
	for _, ag := range items {
		g.rows = append(g.rows, table.Row{
			ag.ID,
			ag.Name,
			ag.CampaignID,
			ag.Status,
			strconv.FormatFloat(ag.DailyBudget, 'f', 2, 64),
			orDash(strings.Join(ag.Countries, ",")),
			orDash(ag.OptimizationGoal),
			orDash(ag.MetaAdGroupID),
		})
	}
	g.footer = countFooter(len(items), len(g.header))
	return g.render(format), nil
}

// Ads renders mirrored ads.
func Ads(format Format, items []core.Ad) (string, error) {
	if format == FormatJSON {
		return JSON(items)
	}
	g := grid{
		header: table.Row{"ID", "Name", "Ad Group", "Status", "Creative", "Meta ID"},
		empty:  "(no ads)",
	}
	for _, ad := range items {
		g.rows = append(g.rows, table.Row{ad.ID, ad.Name, ad.AdGroupID, ad.Status, orDash(ad.MetaCreativeID), orDash(ad.MetaAdID)})
	}
	g.footer = countFooter(len(items), len(g.header))
	return g.render(format), nil
}

// Creatives renders mirrored ad creatives.
func Creatives(format Format, items []core.AdCreative) (string, error) {
	if format == FormatJSON {
		return JSON(items)
	}
	g := grid{
		header: table.Row{"ID", "Name", "Page", "Link", "CTA", "Meta ID"},
		empty:  "(no ad creatives)",
	}
	for _, c := range items {
		g.rows = append(g.rows, table.Row{c.ID, c.Name, orDash(c.PageID), orDash(c.Link), orDash(c.CTAType), orDash(c.CreativeID)})
	}
	g.footer = countFooter(len(items), len(g.header))
	return g.render(format), nil
}

// Outcome renders one gateway outcome as a two-column summary.
func Outcome(format Format, out graph.Outcome) (string, error) {
	if format == FormatJSON {
		return marshal(out)
	}

	transitions := make([]string, 0, len(out.Transitions))
	for _, s := range out.Transitions {
		transitions = append(transitions, string(s))
	}

	g := grid{header: table.Row{"Field", "Value"}}
	g.rows = append(g.rows,
		table.Row{"Outcome", out.Kind.String()},
		table.Row{"HTTP Status", statusText(out.StatusCode)},
		table.Row{"Attempts", out.Attempts},
		table.Row{"Retries", out.Retries},
	)
	if id := out.ID(); id != "" {
		g.rows = append(g.rows, table.Row{"ID", id})
	}
	if !out.OK() {
		g.rows = append(g.rows, table.Row{"Message", orDash(out.DetailMessage())})
	}
	if out.Error != nil {
		g.rows = append(g.rows, table.Row{"Error Code", fmt.Sprintf("%d/%d", out.Error.Code, out.Error.Subcode)})
		if out.Error.FBTraceID != "" {
			g.rows = append(g.rows, table.Row{"Trace", out.Error.FBTraceID})
		}
	}
	if len(transitions) > 0 {
		g.rows = append(g.rows, table.Row{"Transitions", strings.Join(transitions, " > ")})
	}
	return g.render(format), nil
}

func statusText(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

func countFooter(n, width int) table.Row {
	if n == 0 {
		return nil
	}
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
	}
	row[width-1] = fmt.Sprintf("%d total", n)
	return row
}
