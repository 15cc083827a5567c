package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/adsmirror/adsmirror/internal/core"
)

const adGroupColumns = `id, name, status, daily_budget, countries, billing_event, bid_strategy, bid_amount,
	roas_average_floor, optimization_goal, targeting, campaign_id, meta_ad_group_id, user_id`

// CreateAdGroup inserts an ad group and sets its ID.
func (s *Store) CreateAdGroup(ctx context.Context, g *core.AdGroup) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if g == nil {
		return errors.New("ad group is required")
	}

	err = db.QueryRowxContext(ctx, `
		INSERT INTO ad_groups (name, status, daily_budget, countries, billing_event, bid_strategy, bid_amount,
			roas_average_floor, optimization_goal, targeting, campaign_id, meta_ad_group_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, g.Name, g.Status, g.DailyBudget, g.Countries, g.BillingEvent, g.BidStrategy, g.BidAmount,
		g.RoasAverageFloor, g.OptimizationGoal, g.Targeting, g.CampaignID, g.MetaAdGroupID, g.UserID).Scan(&g.ID)
	return translate(err, "insert ad group")
}

// GetAdGroup returns an ad group owned by userID.
func (s *Store) GetAdGroup(ctx context.Context, userID, id int64) (*core.AdGroup, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var g core.AdGroup
	if err := db.GetContext(ctx, &g, `SELECT `+adGroupColumns+` FROM ad_groups WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, translate(err, "fetch ad group")
	}
	return &g, nil
}

// ListAdGroups returns every ad group owned by userID.
func (s *Store) ListAdGroups(ctx context.Context, userID int64) ([]core.AdGroup, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	groups := []core.AdGroup{}
	if err := db.SelectContext(ctx, &groups, `SELECT `+adGroupColumns+` FROM ad_groups WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return nil, translate(err, "list ad groups")
	}
	return groups, nil
}

// UpdateAdGroup writes the mutable ad group fields.
func (s *Store) UpdateAdGroup(ctx context.Context, g *core.AdGroup) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if g == nil {
		return errors.New("ad group is required")
	}

	res, err := db.ExecContext(ctx, `
		UPDATE ad_groups SET name = ?, status = ?, daily_budget = ?, countries = ?, billing_event = ?,
			bid_strategy = ?, bid_amount = ?, roas_average_floor = ?, optimization_goal = ?, targeting = ?
		WHERE id = ? AND user_id = ?
	`, g.Name, g.Status, g.DailyBudget, g.Countries, g.BillingEvent, g.BidStrategy, g.BidAmount,
		g.RoasAverageFloor, g.OptimizationGoal, g.Targeting, g.ID, g.UserID)
	if err != nil {
		return translate(err, "update ad group")
	}
	return requireAffected(res)
}

// DeleteAdGroupCascade removes an ad group and its ads.
func (s *Store) DeleteAdGroupCascade(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ads WHERE ad_group_id = ?`, id); err != nil {
			return fmt.Errorf("delete ad group ads: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM ad_groups WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete ad group: %w", err)
		}
		return requireAffected(res)
	})
}
