package store

import (
	"context"
	"errors"

	"github.com/adsmirror/adsmirror/internal/core"
)

const creativeColumns = `id, creative_id, name, page_id, link, message, image, cta_type, caption, user_id`

// CreateCreative inserts a creative and sets its ID.
func (s *Store) CreateCreative(ctx context.Context, c *core.AdCreative) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("creative is required")
	}

	err = db.QueryRowxContext(ctx, `
		INSERT INTO ad_creatives (creative_id, name, page_id, link, message, image, cta_type, caption, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, c.CreativeID, c.Name, c.PageID, c.Link, c.Message, c.Image, c.CTAType, c.Caption, c.UserID).Scan(&c.ID)
	return translate(err, "insert creative")
}

// GetCreative returns a creative by local ID regardless of owner; callers
// enforce ownership so they can tell "missing" from "forbidden".
func (s *Store) GetCreative(ctx context.Context, id int64) (*core.AdCreative, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var c core.AdCreative
	if err := db.GetContext(ctx, &c, `SELECT `+creativeColumns+` FROM ad_creatives WHERE id = ?`, id); err != nil {
		return nil, translate(err, "fetch creative")
	}
	return &c, nil
}

// ListCreatives returns every creative owned by userID.
func (s *Store) ListCreatives(ctx context.Context, userID int64) ([]core.AdCreative, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	creatives := []core.AdCreative{}
	if err := db.SelectContext(ctx, &creatives, `SELECT `+creativeColumns+` FROM ad_creatives WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return nil, translate(err, "list creatives")
	}
	return creatives, nil
}

// UpdateCreative writes the mutable creative fields.
func (s *Store) UpdateCreative(ctx context.Context, c *core.AdCreative) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("creative is required")
	}

	res, err := db.ExecContext(ctx, `
		UPDATE ad_creatives SET name = ?, page_id = ?, link = ?, message = ?, image = ?, cta_type = ?, caption = ?
		WHERE id = ? AND user_id = ?
	`, c.Name, c.PageID, c.Link, c.Message, c.Image, c.CTAType, c.Caption, c.ID, c.UserID)
	if err != nil {
		return translate(err, "update creative")
	}
	return requireAffected(res)
}

// DeleteCreative removes one creative.
func (s *Store) DeleteCreative(ctx context.Context, userID, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM ad_creatives WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return translate(err, "delete creative")
	}
	return requireAffected(res)
}
