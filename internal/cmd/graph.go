package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core/graph"
	"github.com/adsmirror/adsmirror/internal/observability"
	"github.com/adsmirror/adsmirror/internal/output"
)

var (
	graphMethod string
	graphPath   string
	graphEdge   string
	graphData   []string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Operator tools for the Graph API gateway",
}

var graphSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one request through the gateway and print its outcome",
	Long: `Send one request through the throttle-aware gateway and print the outcome.

--path is relative to the versioned base URL (e.g. "1202001234/" or a full
URL); --edge addresses the configured ad account (e.g. "campaigns").
Each -d key=value becomes a form field; values that parse as JSON objects or
arrays are sent as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateGraph(); err != nil {
			return err
		}

		endpoint := graphEndpoint(cfg)
		target, err := resolveTarget(endpoint, graphPath, graphEdge)
		if err != nil {
			return err
		}
		payload, err := parseFields(graphData)
		if err != nil {
			return err
		}

		gateway := newGateway(cfg, observability.CLILogger)

		method := strings.ToUpper(strings.TrimSpace(graphMethod))
		observability.CLILogger.Debug("Sending Graph request",
			zap.String("method", method),
			zap.Int("fields", len(payload)))

		out := gateway.Send(cmd.Context(), graph.Request{URL: target, Method: method, Payload: payload})
		rendered, err := output.Outcome(format, out)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd, rendered); err != nil {
			return err
		}
		return out.Err()
	},
}

var graphHintCmd = &cobra.Command{
	Use:   "hint <usage-header>",
	Short: "Parse an " + graph.UsageHeader + " value and print the wait it implies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, ok := graph.ParseUsageHint(args[0])
		if !ok {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "no usable regain-access estimate")
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%g minutes (%s)\n", minutes, graph.HintDelay(minutes))
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphSendCmd, graphHintCmd)

	graphSendCmd.Flags().StringVarP(&graphMethod, "method", "X", http.MethodPost, "HTTP method: POST|DELETE|GET")
	graphSendCmd.Flags().StringVar(&graphPath, "path", "", "path relative to the versioned base URL, or a full URL")
	graphSendCmd.Flags().StringVar(&graphEdge, "edge", "", "ad account edge, e.g. campaigns")
	graphSendCmd.Flags().StringArrayVarP(&graphData, "data", "d", nil, "form field as key=value (repeatable)")
	addOutputFlags(graphSendCmd)
}

func resolveTarget(endpoint graph.Endpoint, path, edge string) (string, error) {
	path = strings.TrimSpace(path)
	edge = strings.TrimSpace(edge)
	switch {
	case path != "" && edge != "":
		return "", fmt.Errorf("--path and --edge are mutually exclusive")
	case edge != "":
		return endpoint.AccountURL(edge), nil
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"):
		return path, nil
	case path != "":
		return endpoint.URL(path), nil
	default:
		return "", fmt.Errorf("one of --path or --edge is required")
	}
}

func parseFields(pairs []string) (map[string]any, error) {
	payload := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: want key=value", pair)
		}
		payload[key] = fieldValue(value)
	}
	return payload, nil
}

func fieldValue(value string) any {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return value
}
