// Package appid resolves the application identity used for the binary name,
// environment prefix and config directory names.
package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

// Built-in identity values.
const (
	Vendor      = "adsmirror"
	BinaryName  = "adsmirror"
	EnvPrefix   = "ADSMIRROR_"
	ConfigName  = "adsmirror"
	Description = "Rate-limited Marketing API gateway and local ad mirror"
)

// Default returns the built-in identity.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		Vendor:      Vendor,
		BinaryName:  BinaryName,
		EnvPrefix:   EnvPrefix,
		ConfigName:  ConfigName,
		Description: Description,
	}
}

// Get returns the identity file named by FULMEN_APP_IDENTITY_PATH when set,
// otherwise the built-in identity. Blank fields of a loaded identity are
// filled from the defaults.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) == "" {
		return Default(), nil
	}

	identity, err := appidentity.Get(ctx)
	if err != nil {
		return nil, err
	}
	return withDefaults(identity), nil
}

func withDefaults(identity *appidentity.Identity) *appidentity.Identity {
	out := *identity
	def := Default()
	if strings.TrimSpace(out.BinaryName) == "" {
		out.BinaryName = def.BinaryName
	}
	if strings.TrimSpace(out.EnvPrefix) == "" {
		out.EnvPrefix = def.EnvPrefix
	}
	if !strings.HasSuffix(out.EnvPrefix, "_") {
		out.EnvPrefix += "_"
	}
	if strings.TrimSpace(out.ConfigName) == "" {
		out.ConfigName = out.BinaryName
	}
	if strings.TrimSpace(out.Vendor) == "" {
		out.Vendor = def.Vendor
	}
	if strings.TrimSpace(out.Description) == "" {
		out.Description = def.Description
	}
	return &out
}
