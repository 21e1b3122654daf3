package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donations/internal/core"
)

const campaignColumns = `id, name, description, goal_cents, current_amount_cents, start_date, end_date,
	category, status, image, organizer, tags, is_featured, is_public, notes, created_at, updated_at`

func (r *SQLiteRepository) CreateCampaign(ctx context.Context, c core.Campaign) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO campaigns (`+campaignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Goal.Cents, c.CurrentAmount.Cents,
		millis(c.StartDate), millis(c.EndDate), string(c.Category), string(c.Status), c.Image,
		c.Organizer, encodeTags(c.Tags), boolInt(c.IsFeatured), boolInt(c.IsPublic), c.Notes,
		millis(c.CreatedAt), millis(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCampaign(ctx context.Context, id string) (core.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Campaign{}, core.ErrCampaignNotFound
	}
	if err != nil {
		return core.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// UpdateCampaign rewrites the campaign's attributes; current_amount_cents and
// organizer are left untouched.
func (r *SQLiteRepository) UpdateCampaign(ctx context.Context, c core.Campaign) error {
	res, err := r.db.ExecContext(ctx, `UPDATE campaigns SET
		name = ?, description = ?, goal_cents = ?, start_date = ?, end_date = ?, category = ?,
		status = ?, image = ?, tags = ?, is_featured = ?, is_public = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Description, c.Goal.Cents, millis(c.StartDate), millis(c.EndDate),
		string(c.Category), string(c.Status), c.Image, encodeTags(c.Tags), boolInt(c.IsFeatured),
		boolInt(c.IsPublic), c.Notes, millis(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return expectRow(res, core.ErrCampaignNotFound)
}

func (r *SQLiteRepository) DeleteCampaign(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return expectRow(res, core.ErrCampaignNotFound)
}

func (r *SQLiteRepository) ListCampaigns(ctx context.Context, f core.CampaignFilter, p core.PageRequest) ([]core.Campaign, int, error) {
	q := campaignQuery(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+q.String(), q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	args := append(q.args, p.Limit, p.Offset())
	campaigns, err := r.queryCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns`+q.String()+
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *SQLiteRepository) ScanCampaigns(ctx context.Context, f core.CampaignFilter) ([]core.Campaign, error) {
	q := campaignQuery(f)
	return r.queryCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns`+q.String()+` ORDER BY id`, q.args...)
}

func (r *SQLiteRepository) IncrementCampaignAmount(ctx context.Context, id string, amount core.Money) error {
	res, err := r.db.ExecContext(ctx, `UPDATE campaigns
		SET current_amount_cents = current_amount_cents + ?
		WHERE id = ?`, amount.Cents, id)
	if err != nil {
		return fmt.Errorf("increment campaign amount: %w", err)
	}
	return expectRow(res, core.ErrCampaignNotFound)
}

const recomputeCampaignAmount = `UPDATE campaigns SET
		current_amount_cents = COALESCE((SELECT SUM(amount_cents) FROM donations WHERE campaign_id = campaigns.id), 0)
	WHERE id = ? AND
		current_amount_cents IS NOT COALESCE((SELECT SUM(amount_cents) FROM donations WHERE campaign_id = campaigns.id), 0)`

func (r *SQLiteRepository) RecomputeCampaignAmount(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, recomputeCampaignAmount, id)
	if err != nil {
		return false, fmt.Errorf("recompute campaign amount: %w", err)
	}
	return changed(res)
}

func campaignQuery(f core.CampaignFilter) *query {
	q := &query{}
	if f.Status != "" {
		q.add("status = ?", string(f.Status))
	}
	if f.Category != "" {
		q.add("category = ?", string(f.Category))
	}
	if f.IsFeatured != nil {
		q.add("is_featured = ?", boolInt(*f.IsFeatured))
	}
	if f.IsPublic != nil {
		q.add("is_public = ?", boolInt(*f.IsPublic))
	}
	return q
}

func (r *SQLiteRepository) queryCampaigns(ctx context.Context, stmt string, args ...any) ([]core.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	out := []core.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return out, nil
}

func scanCampaign(s scanner) (core.Campaign, error) {
	var (
		c                        core.Campaign
		category, status, tags   string
		start, end, created, upd int64
	)
	err := s.Scan(&c.ID, &c.Name, &c.Description, &c.Goal.Cents, &c.CurrentAmount.Cents, &start, &end,
		&category, &status, &c.Image, &c.Organizer, &tags, &c.IsFeatured, &c.IsPublic, &c.Notes,
		&created, &upd)
	if err != nil {
		return core.Campaign{}, err
	}
	c.StartDate = fromMillis(start)
	c.EndDate = fromMillis(end)
	c.Category = core.CampaignCategory(category)
	c.Status = core.CampaignStatus(status)
	c.Tags = decodeTags(tags)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(upd)
	return c, nil
}
