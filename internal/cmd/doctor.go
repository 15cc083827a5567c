package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/config"
	"github.com/adsmirror/adsmirror/internal/core/store"
	"github.com/adsmirror/adsmirror/internal/observability"
)

var doctorResetData bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on configuration, credentials and the store, and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logger := observability.CLILogger
		identity := GetAppIdentity()

		logger.Info("=== " + identity.BinaryName + " doctor ===")
		logger.Info("")

		d := &diagnosis{logger: logger, total: 7}

		goVersion := runtime.Version()
		if goVersion >= "go1.25" {
			d.pass("Checking Go version", goVersion)
		} else {
			d.warn("Checking Go version", goVersion+" (recommended: go1.25+)")
		}

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			d.pass("Checking Gofulmen/Crucible", fmt.Sprintf("v%s / v%s", version.Gofulmen, version.Crucible))
		} else {
			d.fail("Checking Gofulmen/Crucible", "versions unavailable")
		}

		if configPath := config.DefaultConfigPath(identity); configPath == "" {
			d.fail("Checking config directory", "cannot resolve config directory")
		} else if fileExists(configPath) {
			d.pass("Checking config directory", configPath)
		} else {
			d.warn("Checking config directory", configPath+" (missing; run 'config init')")
		}

		cfg, err := loadConfig()
		if err != nil {
			d.fail("Checking configuration", err.Error())
			d.skip("Checking Graph credentials", "Checking auth secret", "Checking store")
			d.finish(identity.BinaryName)
			return
		}
		d.pass("Checking configuration", "valid")

		if err := cfg.ValidateGraph(); err != nil {
			d.warn("Checking Graph credentials", strings.ReplaceAll(err.Error(), "\n", "; "))
		} else {
			d.pass("Checking Graph credentials", graphAccount(cfg))
		}

		if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
			d.warn("Checking auth secret", "auth.jwt_secret not set; 'serve' will refuse to start")
		} else {
			d.pass("Checking auth secret", "set")
		}

		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			d.fail("Checking store", err.Error())
			d.finish(identity.BinaryName)
			return
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		states, err := db.MigrationStatus(ctx)
		if err != nil {
			d.fail("Checking store", err.Error())
		} else if pending := pendingMigrations(states); pending > 0 {
			d.warn("Checking store", fmt.Sprintf("%s (%d pending migrations; run 'migrate')", storeLocation(cfg), pending))
		} else {
			d.pass("Checking store", storeLocation(cfg))
		}

		d.finish(identity.BinaryName)
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !doctorResetData {
			return fmt.Errorf("specify --data to confirm removing the local database")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Store.URL != "" {
			return fmt.Errorf("remote store configured; database reset is not supported")
		}

		absPath, _ := filepath.Abs(cfg.Store.Path)
		if err := os.Remove(absPath); err == nil {
			observability.CLILogger.Info("Database removed", zap.String("path", absPath))
		} else if os.IsNotExist(err) {
			observability.CLILogger.Info("Database already removed", zap.String("path", absPath))
		} else {
			return fmt.Errorf("remove database: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorResetCmd)

	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
}

// diagnosis prints numbered check lines and tracks whether any failed.
type diagnosis struct {
	logger *logging.Logger
	total  int
	n      int
	failed bool
}

func (d *diagnosis) line(label, mark, detail string) string {
	d.n++
	return fmt.Sprintf("[%d/%d] %s... %s %s", d.n, d.total, label, mark, detail)
}

func (d *diagnosis) pass(label, detail string) {
	d.logger.Info(d.line(label, "✅", detail))
}

func (d *diagnosis) warn(label, detail string) {
	d.logger.Warn(d.line(label, "⚠️ ", detail))
}

func (d *diagnosis) fail(label, detail string) {
	d.failed = true
	d.logger.Error(d.line(label, "❌", detail))
}

func (d *diagnosis) skip(labels ...string) {
	for _, label := range labels {
		d.logger.Warn(d.line(label, "⚠️ ", "skipped (config not loaded)"))
	}
}

func (d *diagnosis) finish(appName string) {
	d.logger.Info("")
	if d.failed {
		d.logger.Warn("⚠️  Some checks failed. Review the output above for details.")
	} else {
		d.logger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
	}
	d.logger.Info("")
	d.logger.Info("=== End Diagnostics ===")
}

func pendingMigrations(states []store.MigrationState) int {
	pending := 0
	for _, s := range states {
		if !s.Applied {
			pending++
		}
	}
	return pending
}

func graphAccount(cfg *config.Config) string {
	account := "act_" + cfg.Graph.AdAccountID
	if cfg.Graph.PageID == "" {
		return account + " (no page_id; creatives need one)"
	}
	return account + ", page " + cfg.Graph.PageID
}

func storeLocation(cfg *config.Config) string {
	if cfg.Store.URL != "" {
		return cfg.Store.URL + " (remote)"
	}
	absPath, _ := filepath.Abs(cfg.Store.Path)
	if info, err := os.Stat(absPath); err == nil {
		return fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size()))
	}
	return absPath + " (not created yet)"
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
