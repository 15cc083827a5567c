// Package config loads adsmirror configuration through viper and decodes it
// into typed structs with mapstructure.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/adsmirror/adsmirror/internal/appid"
)

const redactedValue = "[redacted]"

// DefaultShutdownTimeout bounds graceful shutdown when unset.
const DefaultShutdownTimeout = 30 * time.Second

// legacyEnv maps the variable names of the original deployment onto config
// keys. They apply only when the key is otherwise unset.
var legacyEnv = map[string]string{
	"META_ACCESS_TOKEN": "graph.access_token",
	"AD_ACCOUNT_ID":     "graph.ad_account_id",
	"PAGE_ID":           "graph.page_id",
	"JWT_SECRET_KEY":    "auth.jwt_secret",
}

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// Load builds a fresh viper from the resolved app identity, applies runtime
// overrides above every other layer and stores the result for GetConfig.
// It is safe to call again to reload.
func Load(ctx context.Context, cfgFile string, overrides ...map[string]any) (*Config, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}

	v := viper.New()
	if err := SetupViper(v, identity, cfgFile); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		applyOverrides(v, "", o)
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the most recently loaded configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func applyOverrides(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			applyOverrides(v, full, nested)
			continue
		}
		v.Set(full, value)
	}
}

// SetDefaults registers every key with its default. Keys must be registered
// for environment overrides to appear in AllSettings.
func SetDefaults(v *viper.Viper, identity *appidentity.Identity) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.admin_token", "")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("graph.access_token", "")
	v.SetDefault("graph.ad_account_id", "")
	v.SetDefault("graph.page_id", "")
	v.SetDefault("graph.api_version", "v22.0")
	v.SetDefault("graph.base_url", "https://graph.facebook.com")
	v.SetDefault("graph.max_retries", 5)
	v.SetDefault("graph.base_wait_time", "1s")
	v.SetDefault("graph.timeout", "30s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.issuer", identityName(identity))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.environment", "production")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.namespace", "")

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

// SetupViper prepares v the way every command sees it: .env loaded into the
// process environment, defaults, config search paths and env binding. A
// missing config file is not an error; cfgFile names one explicitly.
func SetupViper(v *viper.Viper, identity *appidentity.Identity, cfgFile string) error {
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	SetDefaults(v, identity)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range configDirs(identity) {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(strings.TrimSuffix(identityPrefix(identity), "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	applyLegacyEnv(v)
	return nil
}

// FromViper decodes v into a Config and fills the derived store path.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Graph.AdAccountID = strings.TrimPrefix(strings.TrimSpace(cfg.Graph.AdAccountID), "act_")
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	return cfg, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Graph.MaxRetries <= 0 {
		errs = append(errs, errors.New("graph.max_retries must be positive"))
	}
	if c.Graph.BaseWaitTime <= 0 {
		errs = append(errs, errors.New("graph.base_wait_time must be positive"))
	}
	if c.Graph.Timeout <= 0 {
		errs = append(errs, errors.New("graph.timeout must be positive"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if d := strings.ToLower(strings.TrimSpace(c.Store.Driver)); d != "" && d != "libsql" {
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	return errors.Join(errs...)
}

// ValidateServe adds the settings `serve` cannot run without.
func (c *Config) ValidateServe() error {
	errs := []error{c.Validate()}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	errs = append(errs, c.ValidateGraph())
	return errors.Join(errs...)
}

// ValidateGraph checks the credentials needed to send mutations.
func (c *Config) ValidateGraph() error {
	var errs []error
	if strings.TrimSpace(c.Graph.AccessToken) == "" {
		errs = append(errs, errors.New("graph.access_token is required"))
	}
	if strings.TrimSpace(c.Graph.AdAccountID) == "" {
		errs = append(errs, errors.New("graph.ad_account_id is required"))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	mask(&out.Server.AdminToken)
	mask(&out.Store.AuthToken)
	mask(&out.Graph.AccessToken)
	mask(&out.Auth.JWTSecret)
	return &out
}

func mask(s *string) {
	if *s != "" {
		*s = redactedValue
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath(identity *appidentity.Identity) string {
	dir := gfconfig.GetAppConfigDir(identityName(identity))
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the XDG data path of the database file.
func DefaultStorePath() string {
	name := identityName(nil)
	dataDir := gfconfig.GetAppDataDir(name)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + name + ".db"
	}
	return filepath.Join(dataDir, name+".db")
}

func configDirs(identity *appidentity.Identity) []string {
	name := identityName(identity)
	var legacy []string
	if identity != nil && identity.BinaryName != "" && identity.BinaryName != name {
		legacy = append(legacy, identity.BinaryName)
	}

	var dirs []string
	for _, p := range gfconfig.GetAppConfigPaths(name, legacy...) {
		dirs = append(dirs, filepath.Dir(p))
	}
	return append(dirs, "./config", ".")
}

func applyLegacyEnv(v *viper.Viper) {
	for env, key := range legacyEnv {
		if strings.TrimSpace(v.GetString(key)) != "" {
			continue
		}
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			v.Set(key, value)
		}
	}
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func identityName(identity *appidentity.Identity) string {
	if identity != nil {
		if name := strings.TrimSpace(identity.ConfigName); name != "" {
			return name
		}
		if name := strings.TrimSpace(identity.BinaryName); name != "" {
			return name
		}
	}
	return "adsmirror"
}

func identityPrefix(identity *appidentity.Identity) string {
	if identity != nil && strings.TrimSpace(identity.EnvPrefix) != "" {
		return identity.EnvPrefix
	}
	return "ADSMIRROR_"
}
