// Package memory is an in-process Store used by tests and DATA_BACKEND=memory.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"donations/internal/core"
	"donations/internal/ports"
)

type Store struct {
	mu        sync.Mutex
	donors    map[string]core.Donor
	campaigns map[string]core.Campaign
	donations map[string]core.Donation
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		donors:    map[string]core.Donor{},
		campaigns: map[string]core.Campaign{},
		donations: map[string]core.Donation{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Donors

func (s *Store) CreateDonor(_ context.Context, d core.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(d.Email, d.ID) {
		return core.ErrDuplicateEmail
	}
	s.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *Store) GetDonor(_ context.Context, id string) (core.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[id]
	if !ok {
		return core.Donor{}, core.ErrDonorNotFound
	}
	return cloneDonor(d), nil
}

// UpdateDonor replaces the donor's attributes; derived totals are kept.
func (s *Store) UpdateDonor(_ context.Context, d core.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.donors[d.ID]
	if !ok {
		return core.ErrDonorNotFound
	}
	if s.emailTaken(d.Email, d.ID) {
		return core.ErrDuplicateEmail
	}
	d.TotalDonated = cur.TotalDonated
	d.LastDonationDate = cur.LastDonationDate
	d.CreatedAt = cur.CreatedAt
	s.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *Store) ListDonors(ctx context.Context, f core.DonorFilter, p core.PageRequest) ([]core.Donor, int, error) {
	all, _ := s.ScanDonors(ctx, f)
	slices.SortFunc(all, func(a, b core.Donor) int {
		return cmp.Or(
			cmp.Compare(a.LastName, b.LastName),
			cmp.Compare(a.FirstName, b.FirstName),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return paginate(all, p), len(all), nil
}

func (s *Store) ScanDonors(_ context.Context, f core.DonorFilter) ([]core.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Donor{}
	for _, d := range s.donors {
		if matchDonor(f, d) {
			out = append(out, cloneDonor(d))
		}
	}
	return out, nil
}

func (s *Store) IncrementDonorTotal(_ context.Context, id string, amount core.Money, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[id]
	if !ok {
		return core.ErrDonorNotFound
	}
	d.TotalDonated = d.TotalDonated.Add(amount)
	d.LastDonationDate = &at
	s.donors[id] = d
	return nil
}

// RecomputeDonorTotal rewrites the donor's total and last donation date from
// the stored donations, reporting whether either changed.
func (s *Store) RecomputeDonorTotal(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[id]
	if !ok {
		return false, nil
	}
	var (
		total core.Money
		last  *time.Time
	)
	for _, dn := range s.donations {
		if dn.DonorID != id {
			continue
		}
		total = total.Add(dn.Amount)
		if last == nil || dn.CreatedAt.After(*last) {
			at := dn.CreatedAt
			last = &at
		}
	}
	if total == d.TotalDonated && sameInstant(last, d.LastDonationDate) {
		return false, nil
	}
	d.TotalDonated = total
	d.LastDonationDate = last
	s.donors[id] = d
	return true, nil
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, d := range s.donors {
		if id != exceptID && strings.EqualFold(d.Email, email) {
			return true
		}
	}
	return false
}

// Campaigns

func (s *Store) CreateCampaign(_ context.Context, c core.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id string) (core.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return core.Campaign{}, core.ErrCampaignNotFound
	}
	return cloneCampaign(c), nil
}

// UpdateCampaign replaces the campaign's attributes; the raised amount is kept.
func (s *Store) UpdateCampaign(_ context.Context, c core.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.campaigns[c.ID]
	if !ok {
		return core.ErrCampaignNotFound
	}
	c.CurrentAmount = cur.CurrentAmount
	c.CreatedAt = cur.CreatedAt
	c.Organizer = cur.Organizer
	s.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

func (s *Store) DeleteCampaign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return core.ErrCampaignNotFound
	}
	delete(s.campaigns, id)
	return nil
}

func (s *Store) ListCampaigns(ctx context.Context, f core.CampaignFilter, p core.PageRequest) ([]core.Campaign, int, error) {
	all, _ := s.ScanCampaigns(ctx, f)
	slices.SortFunc(all, func(a, b core.Campaign) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return paginate(all, p), len(all), nil
}

func (s *Store) ScanCampaigns(_ context.Context, f core.CampaignFilter) ([]core.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Campaign{}
	for _, c := range s.campaigns {
		if matchCampaign(f, c) {
			out = append(out, cloneCampaign(c))
		}
	}
	return out, nil
}

func (s *Store) IncrementCampaignAmount(_ context.Context, id string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return core.ErrCampaignNotFound
	}
	c.CurrentAmount = c.CurrentAmount.Add(amount)
	s.campaigns[id] = c
	return nil
}

func (s *Store) RecomputeCampaignAmount(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return false, nil
	}
	var total core.Money
	for _, d := range s.donations {
		if d.CampaignID == id {
			total = total.Add(d.Amount)
		}
	}
	if total == c.CurrentAmount {
		return false, nil
	}
	c.CurrentAmount = total
	s.campaigns[id] = c
	return true, nil
}

// Donations

func (s *Store) CreateDonation(_ context.Context, d core.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.donations {
		if other.TransactionID == d.TransactionID {
			return core.ErrDuplicateTransactionID
		}
	}
	s.donations[d.ID] = cloneDonation(d)
	return nil
}

func (s *Store) GetDonation(_ context.Context, id string) (core.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return core.Donation{}, core.ErrDonationNotFound
	}
	return cloneDonation(d), nil
}

// UpdateDonation replaces the donation's attributes. References, the
// transaction id and the processing actor are immutable.
func (s *Store) UpdateDonation(_ context.Context, d core.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.donations[d.ID]
	if !ok {
		return core.ErrDonationNotFound
	}
	d.DonorID = cur.DonorID
	d.CampaignID = cur.CampaignID
	d.TransactionID = cur.TransactionID
	d.ProcessedBy = cur.ProcessedBy
	d.CreatedAt = cur.CreatedAt
	s.donations[d.ID] = cloneDonation(d)
	return nil
}

func (s *Store) DeleteDonation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[id]; !ok {
		return core.ErrDonationNotFound
	}
	delete(s.donations, id)
	return nil
}

func (s *Store) ListDonations(ctx context.Context, f core.DonationFilter, p core.PageRequest) ([]core.Donation, int, error) {
	all, _ := s.ScanDonations(ctx, f)
	return paginate(all, p), len(all), nil
}

// ScanDonations returns the matching donations, newest first.
func (s *Store) ScanDonations(_ context.Context, f core.DonationFilter) ([]core.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Donation{}
	for _, d := range s.donations {
		if s.matchDonation(f, d) {
			out = append(out, cloneDonation(d))
		}
	}
	slices.SortFunc(out, func(a, b core.Donation) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) CountDonations(_ context.Context, f core.DonationFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.donations {
		if s.matchDonation(f, d) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountDonationsByCampaign(_ context.Context, campaignID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.donations {
		if d.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *Store) matchDonation(f core.DonationFilter, d core.Donation) bool {
	switch {
	case f.Status != "" && d.PaymentStatus != f.Status:
		return false
	case f.CampaignID != "" && d.CampaignID != f.CampaignID:
		return false
	case f.DonorID != "" && d.DonorID != f.DonorID:
		return false
	case !f.InRange(d.CreatedAt):
		return false
	}
	if f.DonorType != "" {
		donor, ok := s.donors[d.DonorID]
		return ok && donor.DonorType == f.DonorType
	}
	return true
}

func matchDonor(f core.DonorFilter, d core.Donor) bool {
	if f.DonorType != "" && d.DonorType != f.DonorType {
		return false
	}
	if f.IsActive != nil && d.IsActive != *f.IsActive {
		return false
	}
	if q := strings.ToLower(f.Search); q != "" {
		return strings.Contains(strings.ToLower(d.FirstName), q) ||
			strings.Contains(strings.ToLower(d.LastName), q) ||
			strings.Contains(strings.ToLower(d.Email), q)
	}
	return true
}

func matchCampaign(f core.CampaignFilter, c core.Campaign) bool {
	switch {
	case f.Status != "" && c.Status != f.Status:
		return false
	case f.Category != "" && c.Category != f.Category:
		return false
	case f.IsFeatured != nil && c.IsFeatured != *f.IsFeatured:
		return false
	case f.IsPublic != nil && c.IsPublic != *f.IsPublic:
		return false
	}
	return true
}

func paginate[T any](all []T, p core.PageRequest) []T {
	start := p.Offset()
	if start < 0 || start >= len(all) {
		return []T{}
	}
	end := min(start+p.Limit, len(all))
	return all[start:end]
}

func cloneDonor(d core.Donor) core.Donor {
	d.Tags = slices.Clone(d.Tags)
	return d
}

func cloneCampaign(c core.Campaign) core.Campaign {
	c.Tags = slices.Clone(c.Tags)
	return c
}

func cloneDonation(d core.Donation) core.Donation {
	d.Tags = slices.Clone(d.Tags)
	return d
}
