package mirror

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/core"
)

// CreateCreative creates a link-ad creative on the configured page unless the
// input names another page.
func (s *Service) CreateCreative(ctx context.Context, userID int64, in CreativeInput) (*core.AdCreative, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	c := &core.AdCreative{
		Name:    in.Name,
		PageID:  strings.TrimSpace(in.PageID),
		Link:    in.Link,
		Message: in.Message,
		Image:   in.Image,
		CTAType: in.CTAType,
		Caption: in.Caption,
		UserID:  userID,
	}
	if c.PageID == "" {
		c.PageID = s.PageID
	}
	if err := required("page_id", c.PageID); err != nil {
		return nil, err
	}

	metaID, _, err := s.sendCreate(ctx, "create_creative", s.Endpoint.AccountURL("adcreatives"), creativePayload(c))
	if err != nil {
		return nil, err
	}

	c.CreativeID = metaID
	if err := s.Store.CreateCreative(ctx, c); err != nil {
		return nil, err
	}
	s.logMutation("Ad creative created", zap.Int64("id", c.ID), zap.String("meta_id", metaID))
	return c, nil
}

// GetCreative returns one of the user's creatives.
func (s *Service) GetCreative(ctx context.Context, userID, id int64) (*core.AdCreative, error) {
	c, err := s.Store.GetCreative(ctx, id)
	if err != nil {
		return nil, notFound(err, "ad creative", id)
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("ad creative %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// ListCreatives returns the user's creatives.
func (s *Service) ListCreatives(ctx context.Context, userID int64) ([]core.AdCreative, error) {
	return s.Store.ListCreatives(ctx, userID)
}

// UpdateCreative sends the merged object story spec, then stores it. A
// creative owned by another user is forbidden rather than missing.
func (s *Service) UpdateCreative(ctx context.Context, userID, id int64, patch CreativePatch) (*core.AdCreative, error) {
	c, err := s.ownedCreative(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next := *c
	next.Name = valueOr(patch.Name, c.Name)
	next.Link = valueOr(patch.Link, c.Link)
	next.Message = valueOr(patch.Message, c.Message)
	next.Image = valueOr(patch.Image, c.Image)
	next.CTAType = valueOr(patch.CTAType, c.CTAType)
	next.Caption = valueOr(patch.Caption, c.Caption)
	if s.PageID != "" {
		next.PageID = s.PageID
	}

	if _, err := s.send(ctx, "update_creative", http.MethodPost, s.Endpoint.ObjectURL(c.CreativeID), creativePayload(&next)); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateCreative(ctx, &next); err != nil {
		return nil, notFound(err, "ad creative", id)
	}
	return &next, nil
}

// DeleteCreative deletes the creative remotely, then locally.
func (s *Service) DeleteCreative(ctx context.Context, userID, id int64) error {
	c, err := s.ownedCreative(ctx, userID, id)
	if err != nil {
		return err
	}

	if _, err := s.send(ctx, "delete_creative", http.MethodDelete, s.Endpoint.ObjectURL(c.CreativeID), nil); err != nil {
		return err
	}
	if err := s.Store.DeleteCreative(ctx, userID, id); err != nil {
		return notFound(err, "ad creative", id)
	}
	s.logMutation("Ad creative deleted", zap.Int64("id", id), zap.String("meta_id", c.CreativeID))
	return nil
}

func (s *Service) ownedCreative(ctx context.Context, userID, id int64) (*core.AdCreative, error) {
	c, err := s.Store.GetCreative(ctx, id)
	if err != nil {
		return nil, notFound(err, "ad creative", id)
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("ad creative %d: %w", id, ErrForbidden)
	}
	return c, nil
}

func creativePayload(c *core.AdCreative) map[string]any {
	return map[string]any{
		"name": c.Name,
		"object_story_spec": map[string]any{
			"page_id": c.PageID,
			"link_data": map[string]any{
				"message":        c.Message,
				"link":           c.Link,
				"caption":        c.Caption,
				"picture":        c.Image,
				"call_to_action": map[string]any{"type": c.CTAType},
			},
		},
	}
}
