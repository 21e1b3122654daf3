package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donations/internal/core"
)

const donationColumns = `id, donor_id, campaign_id, amount_cents, currency, payment_method, payment_status,
	transaction_id, is_anonymous, is_recurring, recurring_frequency, message, notes, receipt_sent,
	receipt_sent_at, processed_by, tags, created_at, updated_at`

func (r *SQLiteRepository) CreateDonation(ctx context.Context, d core.Donation) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO donations (`+donationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DonorID, nullString(d.CampaignID), d.Amount.Cents, string(d.Currency),
		string(d.PaymentMethod), string(d.PaymentStatus), d.TransactionID, boolInt(d.IsAnonymous),
		boolInt(d.IsRecurring), string(d.RecurringFrequency), d.Message, d.Notes, boolInt(d.ReceiptSent),
		nullMillis(d.ReceiptSentAt), d.ProcessedBy, encodeTags(d.Tags), millis(d.CreatedAt), millis(d.UpdatedAt))
	if isUniqueViolation(err, "donations.transaction_id") {
		return core.ErrDuplicateTransactionID
	}
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDonation(ctx context.Context, id string) (core.Donation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = ?`, id)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Donation{}, core.ErrDonationNotFound
	}
	if err != nil {
		return core.Donation{}, fmt.Errorf("get donation: %w", err)
	}
	return d, nil
}

// UpdateDonation rewrites the mutable attributes. References, transaction_id and
// processed_by never change after creation.
func (r *SQLiteRepository) UpdateDonation(ctx context.Context, d core.Donation) error {
	res, err := r.db.ExecContext(ctx, `UPDATE donations SET
		amount_cents = ?, currency = ?, payment_method = ?, payment_status = ?, is_anonymous = ?,
		is_recurring = ?, recurring_frequency = ?, message = ?, notes = ?, receipt_sent = ?,
		receipt_sent_at = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		d.Amount.Cents, string(d.Currency), string(d.PaymentMethod), string(d.PaymentStatus),
		boolInt(d.IsAnonymous), boolInt(d.IsRecurring), string(d.RecurringFrequency), d.Message, d.Notes,
		boolInt(d.ReceiptSent), nullMillis(d.ReceiptSentAt), encodeTags(d.Tags), millis(d.UpdatedAt), d.ID)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	return expectRow(res, core.ErrDonationNotFound)
}

func (r *SQLiteRepository) DeleteDonation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	return expectRow(res, core.ErrDonationNotFound)
}

func (r *SQLiteRepository) ListDonations(ctx context.Context, f core.DonationFilter, p core.PageRequest) ([]core.Donation, int, error) {
	total, err := r.CountDonations(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	q := donationQuery(f)
	args := append(q.args, p.Limit, p.Offset())
	donations, err := r.queryDonations(ctx, `SELECT `+donationColumns+` FROM donations`+q.String()+
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return donations, total, nil
}

func (r *SQLiteRepository) ScanDonations(ctx context.Context, f core.DonationFilter) ([]core.Donation, error) {
	q := donationQuery(f)
	return r.queryDonations(ctx, `SELECT `+donationColumns+` FROM donations`+q.String()+
		` ORDER BY created_at DESC, id`, q.args...)
}

func (r *SQLiteRepository) CountDonations(ctx context.Context, f core.DonationFilter) (int, error) {
	q := donationQuery(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donations`+q.String(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountDonationsByCampaign(ctx context.Context, campaignID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donations WHERE campaign_id = ?`, campaignID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count campaign donations: %w", err)
	}
	return n, nil
}

func donationQuery(f core.DonationFilter) *query {
	q := &query{}
	if f.Status != "" {
		q.add("payment_status = ?", string(f.Status))
	}
	if f.CampaignID != "" {
		q.add("campaign_id = ?", f.CampaignID)
	}
	if f.DonorID != "" {
		q.add("donor_id = ?", f.DonorID)
	}
	if f.DonorType != "" {
		q.add("donor_id IN (SELECT id FROM donors WHERE donor_type = ?)", string(f.DonorType))
	}
	if f.From != nil {
		q.add("created_at >= ?", millis(*f.From))
	}
	if f.To != nil {
		q.add("created_at <= ?", millis(*f.To))
	}
	return q
}

func (r *SQLiteRepository) queryDonations(ctx context.Context, stmt string, args ...any) ([]core.Donation, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	out := []core.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

func scanDonation(s scanner) (core.Donation, error) {
	var (
		d                                  core.Donation
		campaignID                         sql.NullString
		currency, method, status, freq, tg string
		receiptAt                          sql.NullInt64
		created, upd                       int64
	)
	err := s.Scan(&d.ID, &d.DonorID, &campaignID, &d.Amount.Cents, &currency, &method, &status,
		&d.TransactionID, &d.IsAnonymous, &d.IsRecurring, &freq, &d.Message, &d.Notes, &d.ReceiptSent,
		&receiptAt, &d.ProcessedBy, &tg, &created, &upd)
	if err != nil {
		return core.Donation{}, err
	}
	d.CampaignID = campaignID.String
	d.Currency = core.Currency(currency)
	d.PaymentMethod = core.PaymentMethod(method)
	d.PaymentStatus = core.PaymentStatus(status)
	d.RecurringFrequency = core.RecurringFrequency(freq)
	d.ReceiptSentAt = fromNullMillis(receiptAt)
	d.Tags = decodeTags(tg)
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(upd)
	return d, nil
}
