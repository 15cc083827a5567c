package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/adsmirror/adsmirror/internal/core"
)

const campaignColumns = `id, name, objective, status, special_ad_categories, meta_campaign_id, user_id`

// CreateCampaign inserts a campaign and sets its ID.
func (s *Store) CreateCampaign(ctx context.Context, c *core.Campaign) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("campaign is required")
	}
	if c.SpecialAdCategories == "" {
		c.SpecialAdCategories = "NONE"
	}

	err = db.QueryRowxContext(ctx, `
		INSERT INTO campaigns (name, objective, status, special_ad_categories, meta_campaign_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, c.Name, c.Objective, c.Status, c.SpecialAdCategories, c.MetaCampaignID, c.UserID).Scan(&c.ID)
	return translate(err, "insert campaign")
}

// GetCampaign returns a campaign owned by userID.
func (s *Store) GetCampaign(ctx context.Context, userID, id int64) (*core.Campaign, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var c core.Campaign
	if err := db.GetContext(ctx, &c, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, translate(err, "fetch campaign")
	}
	return &c, nil
}

// ListCampaigns returns every campaign owned by userID.
func (s *Store) ListCampaigns(ctx context.Context, userID int64) ([]core.Campaign, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	campaigns := []core.Campaign{}
	if err := db.SelectContext(ctx, &campaigns, `SELECT `+campaignColumns+` FROM campaigns WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return nil, translate(err, "list campaigns")
	}
	return campaigns, nil
}

// UpdateCampaign writes the mutable campaign fields.
func (s *Store) UpdateCampaign(ctx context.Context, c *core.Campaign) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("campaign is required")
	}

	res, err := db.ExecContext(ctx, `
		UPDATE campaigns SET name = ?, objective = ?, status = ?, special_ad_categories = ?
		WHERE id = ? AND user_id = ?
	`, c.Name, c.Objective, c.Status, c.SpecialAdCategories, c.ID, c.UserID)
	if err != nil {
		return translate(err, "update campaign")
	}
	return requireAffected(res)
}

// DeleteCampaignCascade removes a campaign with its ad groups and their ads.
func (s *Store) DeleteCampaignCascade(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM ads WHERE ad_group_id IN (SELECT id FROM ad_groups WHERE campaign_id = ?)
		`, id); err != nil {
			return fmt.Errorf("delete campaign ads: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ad_groups WHERE campaign_id = ?`, id); err != nil {
			return fmt.Errorf("delete campaign ad groups: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete campaign: %w", err)
		}
		return requireAffected(res)
	})
}
