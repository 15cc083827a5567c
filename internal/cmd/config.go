package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/adsmirror/adsmirror/internal/config"
	"github.com/adsmirror/adsmirror/internal/observability"
)

var (
	configInitForce bool
	configInitPath  string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfigPath(GetAppIdentity()))
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(configInitPath)
		if path == "" {
			path = config.DefaultConfigPath(GetAppIdentity())
		}
		if path == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(starterConfig()), 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "write to this path instead of the default")
}

func starterConfig() string {
	prefix := GetAppIdentity().EnvPrefix
	lines := []string{
		"# " + GetAppIdentity().BinaryName + " config - created by 'config init'",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"  cors_origins:",
		"    - http://localhost:3000",
		"graph:",
		"  api_version: v22.0",
		"  # access_token: \"\"  # or " + prefix + "GRAPH_ACCESS_TOKEN / META_ACCESS_TOKEN",
		"  # ad_account_id: \"\"  # or " + prefix + "GRAPH_AD_ACCOUNT_ID / AD_ACCOUNT_ID",
		"  # page_id: \"\"  # or " + prefix + "GRAPH_PAGE_ID / PAGE_ID",
		"  max_retries: 5",
		"  base_wait_time: 1s",
		"auth:",
		"  # jwt_secret: \"\"  # or " + prefix + "AUTH_JWT_SECRET / JWT_SECRET_KEY",
		"  token_ttl: 1h",
		"logging:",
		"  level: info",
		"metrics:",
		"  enabled: true",
		"  port: 9090",
	}
	return strings.Join(lines, "\n") + "\n"
}
