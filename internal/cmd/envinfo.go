package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/config"
	"github.com/adsmirror/adsmirror/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information. Secrets are shown only as set or not set.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		log.Info("=== " + identity.BinaryName + " Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("  Env Prefix: " + identity.EnvPrefix)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := loadConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Config File:    " + orNone(config.DefaultConfigPath(identity)))
		log.Info(fmt.Sprintf("  Server:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Log Level:      " + cfg.Logging.Level)
		log.Info("  DB Driver:      " + cfg.Store.Driver)
		if cfg.Store.URL != "" {
			log.Info("  DB URL:         " + cfg.Store.URL)
		} else {
			log.Info("  DB Path:        " + cfg.Store.Path)
		}
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info("")

		log.Info("Graph API:")
		log.Info("  Base URL:       " + cfg.Graph.BaseURL)
		log.Info("  Version:        " + cfg.Graph.APIVersion)
		log.Info("  Ad Account:     " + orNone(cfg.Graph.AdAccountID))
		log.Info("  Page:           " + orNone(cfg.Graph.PageID))
		log.Info("  Access Token:   " + setStatus(cfg.Graph.AccessToken))
		log.Info(fmt.Sprintf("  Max Retries:    %d", cfg.Graph.MaxRetries))
		log.Info("  Base Wait:      " + cfg.Graph.BaseWaitTime.String())
		log.Info("")

		log.Info("Auth:")
		log.Info("  JWT Secret:     " + setStatus(cfg.Auth.JWTSecret))
		log.Info("  Token TTL:      " + cfg.Auth.TokenTTL.String())
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

func setStatus(value string) string {
	if value == "" {
		return "(not set)"
	}
	return "(set)"
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
