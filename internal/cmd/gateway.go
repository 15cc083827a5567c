package cmd

import (
	"github.com/fulmenhq/gofulmen/logging"

	"github.com/adsmirror/adsmirror/internal/config"
	"github.com/adsmirror/adsmirror/internal/core/graph"
	"github.com/adsmirror/adsmirror/internal/core/mirror"
)

func graphEndpoint(cfg *config.Config) graph.Endpoint {
	return graph.Endpoint{
		BaseURL:     cfg.Graph.BaseURL,
		Version:     cfg.Graph.APIVersion,
		AdAccountID: cfg.Graph.AdAccountID,
	}
}

func newGateway(cfg *config.Config, logger *logging.Logger) *graph.Gateway {
	gateway := graph.New(graph.Config{
		AccessToken:  cfg.Graph.AccessToken,
		MaxRetries:   cfg.Graph.MaxRetries,
		BaseWaitTime: cfg.Graph.BaseWaitTime,
		Timeout:      cfg.Graph.Timeout,
	})
	gateway.Logger = logger
	return gateway
}

// newMirror wires a mirror service and its gateway to the same logger.
func newMirror(cfg *config.Config, st mirror.Store, logger *logging.Logger) *mirror.Service {
	svc := mirror.New(newGateway(cfg, logger), st, graphEndpoint(cfg), cfg.Graph.PageID)
	svc.Logger = logger
	return svc
}
