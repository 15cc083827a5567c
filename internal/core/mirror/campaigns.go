package mirror

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core"
)

const defaultSpecialAdCategories = "NONE"

// CreateCampaign creates the campaign remotely, then records it.
func (s *Service) CreateCampaign(ctx context.Context, userID int64, in CampaignInput) (*core.Campaign, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("objective", in.Objective); err != nil {
		return nil, err
	}
	if err := required("status", in.Status); err != nil {
		return nil, err
	}
	categories := strings.TrimSpace(in.SpecialAdCategories)
	if categories == "" {
		categories = defaultSpecialAdCategories
	}

	metaID, _, err := s.sendCreate(ctx, "create_campaign", s.Endpoint.AccountURL("campaigns"), map[string]any{
		"name":                  in.Name,
		"objective":             in.Objective,
		"status":                in.Status,
		"special_ad_categories": categories,
	})
	if err != nil {
		return nil, err
	}

	c := &core.Campaign{
		Name:                in.Name,
		Objective:           in.Objective,
		Status:              in.Status,
		SpecialAdCategories: categories,
		MetaCampaignID:      metaID,
		UserID:              userID,
	}
	if err := s.Store.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	s.logMutation("Campaign created", zap.Int64("id", c.ID), zap.String("meta_id", metaID))
	return c, nil
}

// GetCampaign returns one of the user's campaigns.
func (s *Service) GetCampaign(ctx context.Context, userID, id int64) (*core.Campaign, error) {
	c, err := s.Store.GetCampaign(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "campaign", id)
	}
	return c, nil
}

// ListCampaigns returns the user's campaigns.
func (s *Service) ListCampaigns(ctx context.Context, userID int64) ([]core.Campaign, error) {
	return s.Store.ListCampaigns(ctx, userID)
}

// UpdateCampaign sends the merged fields remotely, then stores them.
func (s *Service) UpdateCampaign(ctx context.Context, userID, id int64, patch CampaignPatch) (*core.Campaign, error) {
	c, err := s.GetCampaign(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next := *c
	next.Name = valueOr(patch.Name, c.Name)
	next.Objective = valueOr(patch.Objective, c.Objective)
	next.Status = valueOr(patch.Status, c.Status)

	if _, err := s.send(ctx, "update_campaign", http.MethodPost, s.Endpoint.ObjectURL(c.MetaCampaignID), map[string]any{
		"name":      next.Name,
		"objective": next.Objective,
		"status":    next.Status,
	}); err != nil {
		return nil, err
	}

	if err := s.Store.UpdateCampaign(ctx, &next); err != nil {
		return nil, notFound(err, "campaign", id)
	}
	return &next, nil
}

// DeleteCampaign deletes the campaign remotely, then removes it with its
// ad groups and ads.
func (s *Service) DeleteCampaign(ctx context.Context, userID, id int64) error {
	c, err := s.GetCampaign(ctx, userID, id)
	if err != nil {
		return err
	}

	if _, err := s.send(ctx, "delete_campaign", http.MethodDelete, s.Endpoint.ObjectURL(c.MetaCampaignID), nil); err != nil {
		return err
	}

	if err := s.Store.DeleteCampaignCascade(ctx, userID, id); err != nil {
		return notFound(err, "campaign", id)
	}
	s.logMutation("Campaign deleted", zap.Int64("id", id), zap.String("meta_id", c.MetaCampaignID))
	return nil
}
