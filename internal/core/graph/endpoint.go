package graph

import (
	"strings"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v22.0"
)

// Endpoint builds Graph URLs for one ad account.
type Endpoint struct {
	BaseURL     string
	Version     string
	AdAccountID string
}

// URL joins path onto the versioned base URL.
func (e Endpoint) URL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := strings.Trim(strings.TrimSpace(e.Version), "/")
	if version == "" {
		version = DefaultAPIVersion
	}
	return base + "/" + version + "/" + strings.TrimLeft(path, "/")
}

// AccountURL addresses an edge of the ad account, e.g. "campaigns".
func (e Endpoint) AccountURL(edge string) string {
	return e.URL(AccountNode(e.AdAccountID) + "/" + strings.TrimLeft(edge, "/"))
}

// ObjectURL addresses a node by its Graph ID.
func (e Endpoint) ObjectURL(id string) string {
	return e.URL(strings.TrimSpace(id))
}

// AccountNode normalizes an ad account ID to its "act_" node form.
func AccountNode(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}
