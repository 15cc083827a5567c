package store

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/adsmirror/adsmirror/internal/core"
)

const adColumns = `id, name, status, ad_group_id, meta_ad_id, meta_creative_id, user_id`

// CreateAd inserts an ad and sets its ID.
func (s *Store) CreateAd(ctx context.Context, ad *core.Ad) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if ad == nil {
		return errors.New("ad is required")
	}

	err = db.QueryRowxContext(ctx, `
		INSERT INTO ads (name, status, ad_group_id, meta_ad_id, meta_creative_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, ad.Name, ad.Status, ad.AdGroupID, ad.MetaAdID, ad.MetaCreativeID, ad.UserID).Scan(&ad.ID)
	return translate(err, "insert ad")
}

// GetAd returns an ad owned by userID.
func (s *Store) GetAd(ctx context.Context, userID, id int64) (*core.Ad, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var ad core.Ad
	if err := db.GetContext(ctx, &ad, `SELECT `+adColumns+` FROM ads WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, translate(err, "fetch ad")
	}
	return &ad, nil
}

// ListAds returns every ad owned by userID.
func (s *Store) ListAds(ctx context.Context, userID int64) ([]core.Ad, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	ads := []core.Ad{}
	if err := db.SelectContext(ctx, &ads, `SELECT `+adColumns+` FROM ads WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return nil, translate(err, "list ads")
	}
	return ads, nil
}

// ListAdsByAdGroup returns the ads under one ad group.
func (s *Store) ListAdsByAdGroup(ctx context.Context, adGroupID int64) ([]core.Ad, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	ads := []core.Ad{}
	if err := db.SelectContext(ctx, &ads, `SELECT `+adColumns+` FROM ads WHERE ad_group_id = ? ORDER BY id`, adGroupID); err != nil {
		return nil, translate(err, "list ad group ads")
	}
	return ads, nil
}

// UpdateAd writes the mutable ad fields.
func (s *Store) UpdateAd(ctx context.Context, ad *core.Ad) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if ad == nil {
		return errors.New("ad is required")
	}

	res, err := db.ExecContext(ctx, `
		UPDATE ads SET name = ?, status = ?, meta_creative_id = ? WHERE id = ? AND user_id = ?
	`, ad.Name, ad.Status, ad.MetaCreativeID, ad.ID, ad.UserID)
	if err != nil {
		return translate(err, "update ad")
	}
	return requireAffected(res)
}

// DeleteAd removes one ad.
func (s *Store) DeleteAd(ctx context.Context, userID, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM ads WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return translate(err, "delete ad")
	}
	return requireAffected(res)
}

// DeleteAds removes a batch of ads in one transaction. Missing IDs are ignored.
func (s *Store) DeleteAds(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM ads WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return translate(err, "delete ads")
		}
		return nil
	})
}
