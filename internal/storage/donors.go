package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"donations/internal/core"
)

const donorColumns = `id, first_name, last_name, email, phone, street, city, state, zip_code, country,
	date_of_birth, donor_type, is_anonymous, tags, notes, is_active, total_donated_cents,
	last_donation_date, created_at, updated_at`

func (r *SQLiteRepository) CreateDonor(ctx context.Context, d core.Donor) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO donors (`+donorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.FirstName, d.LastName, d.Email, d.Phone,
		d.Address.Street, d.Address.City, d.Address.State, d.Address.ZipCode, d.Address.Country,
		nullMillis(d.DateOfBirth), string(d.DonorType), boolInt(d.IsAnonymous), encodeTags(d.Tags), d.Notes,
		boolInt(d.IsActive), d.TotalDonated.Cents, nullMillis(d.LastDonationDate),
		millis(d.CreatedAt), millis(d.UpdatedAt))
	if isUniqueViolation(err, "donors.email") {
		return core.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDonor(ctx context.Context, id string) (core.Donor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = ?`, id)
	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Donor{}, core.ErrDonorNotFound
	}
	if err != nil {
		return core.Donor{}, fmt.Errorf("get donor: %w", err)
	}
	return d, nil
}

// UpdateDonor rewrites the donor's attributes. Totals are owned by the
// increment and reconcile statements and are left untouched.
func (r *SQLiteRepository) UpdateDonor(ctx context.Context, d core.Donor) error {
	res, err := r.db.ExecContext(ctx, `UPDATE donors SET
		first_name = ?, last_name = ?, email = ?, phone = ?, street = ?, city = ?, state = ?,
		zip_code = ?, country = ?, date_of_birth = ?, donor_type = ?, is_anonymous = ?, tags = ?,
		notes = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		d.FirstName, d.LastName, d.Email, d.Phone, d.Address.Street, d.Address.City, d.Address.State,
		d.Address.ZipCode, d.Address.Country, nullMillis(d.DateOfBirth), string(d.DonorType),
		boolInt(d.IsAnonymous), encodeTags(d.Tags), d.Notes, boolInt(d.IsActive), millis(d.UpdatedAt),
		d.ID)
	if isUniqueViolation(err, "donors.email") {
		return core.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	return expectRow(res, core.ErrDonorNotFound)
}

func (r *SQLiteRepository) ListDonors(ctx context.Context, f core.DonorFilter, p core.PageRequest) ([]core.Donor, int, error) {
	q := donorQuery(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donors`+q.String(), q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count donors: %w", err)
	}

	args := append(q.args, p.Limit, p.Offset())
	donors, err := r.queryDonors(ctx, `SELECT `+donorColumns+` FROM donors`+q.String()+
		` ORDER BY last_name, first_name, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return donors, total, nil
}

func (r *SQLiteRepository) ScanDonors(ctx context.Context, f core.DonorFilter) ([]core.Donor, error) {
	q := donorQuery(f)
	return r.queryDonors(ctx, `SELECT `+donorColumns+` FROM donors`+q.String()+` ORDER BY id`, q.args...)
}

func (r *SQLiteRepository) IncrementDonorTotal(ctx context.Context, id string, amount core.Money, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE donors
		SET total_donated_cents = total_donated_cents + ?, last_donation_date = ?
		WHERE id = ?`, amount.Cents, millis(at), id)
	if err != nil {
		return fmt.Errorf("increment donor total: %w", err)
	}
	return expectRow(res, core.ErrDonorNotFound)
}

// The sum and latest date are taken from the donation rows inside the UPDATE
// itself, so no increment committed before the statement is lost.
const recomputeDonorTotal = `UPDATE donors SET
		total_donated_cents = COALESCE((SELECT SUM(amount_cents) FROM donations WHERE donor_id = donors.id), 0),
		last_donation_date = (SELECT MAX(created_at) FROM donations WHERE donor_id = donors.id)
	WHERE id = ? AND (
		total_donated_cents IS NOT COALESCE((SELECT SUM(amount_cents) FROM donations WHERE donor_id = donors.id), 0)
		OR last_donation_date IS NOT (SELECT MAX(created_at) FROM donations WHERE donor_id = donors.id))`

func (r *SQLiteRepository) RecomputeDonorTotal(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, recomputeDonorTotal, id)
	if err != nil {
		return false, fmt.Errorf("recompute donor total: %w", err)
	}
	return changed(res)
}

func donorQuery(f core.DonorFilter) *query {
	q := &query{}
	if f.DonorType != "" {
		q.add("donor_type = ?", string(f.DonorType))
	}
	if f.IsActive != nil {
		q.add("is_active = ?", boolInt(*f.IsActive))
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q.add(`(LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, p, p, p)
	}
	return q
}

func (r *SQLiteRepository) queryDonors(ctx context.Context, stmt string, args ...any) ([]core.Donor, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query donors: %w", err)
	}
	defer rows.Close()

	out := []core.Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return out, nil
}

func scanDonor(s scanner) (core.Donor, error) {
	var (
		d                  core.Donor
		donorType, tags    string
		dob, lastDonation  sql.NullInt64
		createdAt, updated int64
	)
	err := s.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
		&d.Address.Street, &d.Address.City, &d.Address.State, &d.Address.ZipCode, &d.Address.Country,
		&dob, &donorType, &d.IsAnonymous, &tags, &d.Notes, &d.IsActive, &d.TotalDonated.Cents,
		&lastDonation, &createdAt, &updated)
	if err != nil {
		return core.Donor{}, err
	}
	d.DonorType = core.DonorType(donorType)
	d.DateOfBirth = fromNullMillis(dob)
	d.Tags = decodeTags(tags)
	d.LastDonationDate = fromNullMillis(lastDonation)
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updated)
	return d, nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// changed reports whether the statement rewrote a row.
func changed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
