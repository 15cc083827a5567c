package mirror

import "strings"

// FallbackOptimizationGoal is used when no goal fits the objective and
// conversion location.
const FallbackOptimizationGoal = "IMPRESSIONS"

// performanceGoals lists valid optimization goals per campaign objective and
// conversion location, most preferred first.
var performanceGoals = map[string]map[string][]string{
	"OUTCOME_AWARENESS": {
		"":            {"REACH", "IMPRESSIONS", "AD_RECALL_LIFT"},
		"VIDEO_VIEWS": {"THRUPLAY", "TWO_SECOND_CONTINUOUS_VIDEO_VIEWS"},
	},
	"OUTCOME_TRAFFIC": {
		"WEBSITE":           {"LANDING_PAGE_VIEWS", "LINK_CLICKS", "REACH", "CONVERSATIONS", "IMPRESSIONS"},
		"APP":               {"LINK_CLICKS", "REACH"},
		"MESSAGING_APPS":    {"LINK_CLICKS", "REACH", "CONVERSATIONS", "IMPRESSIONS"},
		"INSTAGRAM_PROFILE": {"VISIT_INSTAGRAM_PROFILE"},
		"CALLS":             {"QUALITY_CALL"},
	},
	"OUTCOME_ENGAGEMENT": {
		"MESSAGING_APPS":  {"CONVERSATIONS", "LINK_CLICKS", "REACH"},
		"ON_YOUR_AD":      {"IMPRESSIONS"},
		"VIDEO_VIEWS":     {"THRUPLAY", "TWO_SECOND_CONTINUOUS_VIDEO_VIEWS"},
		"POST_ENGAGEMENT": {"POST_ENGAGEMENT", "REACH", "IMPRESSIONS"},
		"EVENT_RESPONSES": {"EVENT_RESPONSES", "POST_ENGAGEMENT", "REACH", "IMPRESSIONS"},
		"GROUP_JOINS":     {"LINK_CLICKS"},
		"REMINDERS_SET":   {"REMINDERS_SET"},
		"CALLS":           {"QUALITY_CALL"},
		"WEBSITE":         {"OFFSITE_CONVERSIONS", "LANDING_PAGE_VIEWS", "LINK_CLICKS", "REACH", "IMPRESSIONS"},
		"APP":             {"APP_INSTALLS", "LINK_CLICKS", "REACH"},
	},
	"OUTCOME_LEADS": {
		"WEBSITE":       {"OFFSITE_CONVERSIONS", "LANDING_PAGE_VIEWS", "LINK_CLICKS", "REACH", "IMPRESSIONS"},
		"INSTANT_FORMS": {"LEAD_GENERATION", "QUALITY_LEAD"},
		"MESSENGER":     {"LEAD_GENERATION"},
		"INSTAGRAM":     {"LEAD_GENERATION"},
		"CALLS":         {"QUALITY_CALL"},
	},
	"OUTCOME_SALES": {
		"WEBSITE_AND_SHOP": {"OFFSITE_CONVERSIONS", "VALUE"},
		"WEBSITE":          {"OFFSITE_CONVERSIONS", "VALUE", "LANDING_PAGE_VIEWS", "LINK_CLICKS", "REACH", "IMPRESSIONS"},
		"APP":              {"APP_INSTALLS", "LINK_CLICKS", "REACH", "IMPRESSIONS"},
		"WEBSITE_AND_APP":  {"OFFSITE_CONVERSIONS"},
		"MESSAGING_APPS":   {"CONVERSATIONS", "OFFSITE_CONVERSIONS", "LINK_CLICKS", "REACH"},
		"CALLS":            {"QUALITY_CALL"},
		"CATALOG_SALES":    {"OFFSITE_CONVERSIONS", "VALUE", "LINK_CLICKS", "IMPRESSIONS"},
	},
}

// ValidOptimizationGoals returns the goals allowed for an objective and
// conversion location. Names are matched case-insensitively and spaces may
// stand in for underscores.
func ValidOptimizationGoals(objective, location string) []string {
	return performanceGoals[goalKey(objective)][goalKey(location)]
}

// ResolveOptimizationGoal keeps goal when it is valid for the pair and
// otherwise picks the preferred goal.
func ResolveOptimizationGoal(objective, location, goal string) string {
	valid := ValidOptimizationGoals(objective, location)
	goal = strings.TrimSpace(goal)
	for _, candidate := range valid {
		if strings.EqualFold(candidate, goal) {
			return candidate
		}
	}
	if len(valid) > 0 {
		return valid[0]
	}
	if goal != "" {
		return goal
	}
	return FallbackOptimizationGoal
}

func goalKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
