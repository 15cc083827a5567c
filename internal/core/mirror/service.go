// Package mirror keeps the local store in step with the remote ad account.
// Every mutation is sent through the Graph gateway first; the store changes
// only after the remote confirms success.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/graph"
	"github.com/adsmirror/adsmirror/internal/core/store"
	"github.com/adsmirror/adsmirror/internal/metrics"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrMissingRemoteID = errors.New("remote response did not include an id")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// OutcomeError carries a non-success gateway outcome back to the caller.
type OutcomeError struct {
	Op      string
	Outcome graph.Outcome
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Outcome.DetailMessage())
}

func (e *OutcomeError) Unwrap() error {
	return e.Outcome.Err()
}

// Sender is the gateway operation the service depends on.
type Sender interface {
	Send(ctx context.Context, req graph.Request) graph.Outcome
}

// Store is the persistence the service depends on.
type Store interface {
	CreateCampaign(ctx context.Context, c *core.Campaign) error
	GetCampaign(ctx context.Context, userID, id int64) (*core.Campaign, error)
	ListCampaigns(ctx context.Context, userID int64) ([]core.Campaign, error)
	UpdateCampaign(ctx context.Context, c *core.Campaign) error
	DeleteCampaignCascade(ctx context.Context, userID, id int64) error

	CreateAdGroup(ctx context.Context, g *core.AdGroup) error
	GetAdGroup(ctx context.Context, userID, id int64) (*core.AdGroup, error)
	ListAdGroups(ctx context.Context, userID int64) ([]core.AdGroup, error)
	UpdateAdGroup(ctx context.Context, g *core.AdGroup) error
	DeleteAdGroupCascade(ctx context.Context, userID, id int64) error

	CreateAd(ctx context.Context, ad *core.Ad) error
	GetAd(ctx context.Context, userID, id int64) (*core.Ad, error)
	ListAds(ctx context.Context, userID int64) ([]core.Ad, error)
	ListAdsByAdGroup(ctx context.Context, adGroupID int64) ([]core.Ad, error)
	UpdateAd(ctx context.Context, ad *core.Ad) error
	DeleteAd(ctx context.Context, userID, id int64) error
	DeleteAds(ctx context.Context, userID int64, ids []int64) error

	CreateCreative(ctx context.Context, c *core.AdCreative) error
	GetCreative(ctx context.Context, id int64) (*core.AdCreative, error)
	ListCreatives(ctx context.Context, userID int64) ([]core.AdCreative, error)
	UpdateCreative(ctx context.Context, c *core.AdCreative) error
	DeleteCreative(ctx context.Context, userID, id int64) error
}

// Service orchestrates remote mutations and local persistence.
type Service struct {
	Graph    Sender
	Store    Store
	Endpoint graph.Endpoint
	PageID   string
	Logger   *logging.Logger
}

// New builds a service for one ad account.
func New(sender Sender, st Store, endpoint graph.Endpoint, pageID string) *Service {
	return &Service{Graph: sender, Store: st, Endpoint: endpoint, PageID: pageID}
}

// send performs the remote call and converts failures into an OutcomeError.
func (s *Service) send(ctx context.Context, op, method, url string, payload map[string]any) (graph.Outcome, error) {
	out := s.Graph.Send(ctx, graph.Request{URL: url, Method: method, Payload: payload})
	metrics.RecordOperation(op, out.OK())
	if !out.OK() {
		metrics.RecordOperationError(op, out.Kind.String())
		return out, &OutcomeError{Op: op, Outcome: out}
	}
	return out, nil
}

// sendCreate is send for calls whose success body must carry the new ID.
func (s *Service) sendCreate(ctx context.Context, op, url string, payload map[string]any) (string, graph.Outcome, error) {
	out, err := s.send(ctx, op, http.MethodPost, url, payload)
	if err != nil {
		return "", out, err
	}
	id := out.ID()
	if id == "" {
		metrics.RecordOperationError(op, "missing_id")
		return "", out, fmt.Errorf("%s: %w", op, ErrMissingRemoteID)
	}
	return id, out, nil
}

func (s *Service) logMutation(msg string, fields ...zap.Field) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info(msg, fields...)
}

// notFound maps a store miss to the package sentinel.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return err
}
