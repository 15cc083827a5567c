package mirror

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core"
)

// CreateAd creates an ad in one of the user's ad groups.
func (s *Service) CreateAd(ctx context.Context, userID int64, in AdInput) (*core.Ad, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if in.AdGroupID <= 0 {
		return nil, invalid("ad_group_id", "is required")
	}
	if err := required("creative_id", in.CreativeID); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = core.StatusActive
	}

	g, err := s.GetAdGroup(ctx, userID, in.AdGroupID)
	if err != nil {
		return nil, err
	}
	if g.MetaAdGroupID == "" {
		return nil, invalid("ad_group_id", "ad group has no remote id")
	}

	metaID, _, err := s.sendCreate(ctx, "create_ad", s.Endpoint.AccountURL("ads"), map[string]any{
		"name":     in.Name,
		"adset_id": g.MetaAdGroupID,
		"creative": map[string]any{"creative_id": in.CreativeID},
		"status":   status,
	})
	if err != nil {
		return nil, err
	}

	ad := &core.Ad{
		Name:           in.Name,
		Status:         status,
		AdGroupID:      g.ID,
		MetaAdID:       metaID,
		MetaCreativeID: in.CreativeID,
		UserID:         userID,
	}
	if err := s.Store.CreateAd(ctx, ad); err != nil {
		return nil, err
	}
	s.logMutation("Ad created", zap.Int64("id", ad.ID), zap.String("meta_id", metaID))
	return ad, nil
}

// GetAd returns one of the user's ads.
func (s *Service) GetAd(ctx context.Context, userID, id int64) (*core.Ad, error) {
	ad, err := s.Store.GetAd(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "ad", id)
	}
	return ad, nil
}

// ListAds returns the user's ads.
func (s *Service) ListAds(ctx context.Context, userID int64) ([]core.Ad, error) {
	return s.Store.ListAds(ctx, userID)
}

// UpdateAd sends name, status and creative, then stores them.
func (s *Service) UpdateAd(ctx context.Context, userID, id int64, patch AdPatch) (*core.Ad, error) {
	ad, err := s.GetAd(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if ad.MetaAdID == "" {
		return nil, invalid("id", "ad has no remote id")
	}

	next := *ad
	next.Name = valueOr(patch.Name, ad.Name)
	next.Status = valueOr(patch.Status, ad.Status)
	next.MetaCreativeID = valueOr(patch.CreativeID, ad.MetaCreativeID)
	if err := required("name", next.Name); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"name":   next.Name,
		"status": next.Status,
	}
	if next.MetaCreativeID != "" {
		payload["creative"] = map[string]any{"creative_id": next.MetaCreativeID}
	}
	if _, err := s.send(ctx, "update_ad", http.MethodPost, s.Endpoint.ObjectURL(ad.MetaAdID), payload); err != nil {
		return nil, err
	}

	if err := s.Store.UpdateAd(ctx, &next); err != nil {
		return nil, notFound(err, "ad", id)
	}
	return &next, nil
}

// DeleteAd deletes the ad remotely, then locally.
func (s *Service) DeleteAd(ctx context.Context, userID, id int64) error {
	ad, err := s.GetAd(ctx, userID, id)
	if err != nil {
		return err
	}
	if ad.MetaAdID == "" {
		return invalid("id", "ad has no remote id")
	}

	if _, err := s.send(ctx, "delete_ad", http.MethodDelete, s.Endpoint.ObjectURL(ad.MetaAdID), nil); err != nil {
		return err
	}
	if err := s.Store.DeleteAd(ctx, userID, id); err != nil {
		return notFound(err, "ad", id)
	}
	s.logMutation("Ad deleted", zap.Int64("id", id), zap.String("meta_id", ad.MetaAdID))
	return nil
}
