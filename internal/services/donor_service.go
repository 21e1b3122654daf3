package services

import (
	"context"
	"fmt"
	"time"

	"donations/internal/core"
	"donations/internal/log"
	"donations/internal/ports"
)

// DonorService registers, updates and deactivates donors.
type DonorService struct {
	store  ports.DonorRepository
	logger *log.Logger
	now    func() time.Time
}

func NewDonorService(store ports.DonorRepository, logger *log.Logger) *DonorService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DonorService{store: store, logger: logger.WithComponent(log.ComponentDonor), now: time.Now}
}

// Create registers a donor. Client-supplied totals are discarded.
func (s *DonorService) Create(ctx context.Context, d core.Donor) (core.Donor, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}

	now := s.now().UTC()
	d.ID = core.NewID()
	d.IsActive = true
	d.TotalDonated = core.Money{}
	d.LastDonationDate = nil
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := s.store.CreateDonor(ctx, d); err != nil {
		return core.Donor{}, fmt.Errorf("create donor: %w", err)
	}
	s.logger.InfoContext(ctx, "Donor created", log.FieldDonorID, d.ID, log.FieldOperation, log.OpCreate)
	return d, nil
}

func (s *DonorService) Get(ctx context.Context, id string) (core.Donor, error) {
	if !core.ValidID(id) {
		return core.Donor{}, core.ErrInvalidDonorID
	}
	d, err := s.store.GetDonor(ctx, id)
	if err != nil {
		return core.Donor{}, fmt.Errorf("get donor: %w", err)
	}
	return d, nil
}

func (s *DonorService) Update(ctx context.Context, id string, p core.DonorPatch) (core.Donor, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return core.Donor{}, err
	}
	next := cur.Apply(p)
	if err := next.Validate(); err != nil {
		return core.Donor{}, err
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDonor(ctx, next); err != nil {
		return core.Donor{}, fmt.Errorf("update donor: %w", err)
	}
	s.logger.InfoContext(ctx, "Donor updated", log.FieldDonorID, id, log.FieldOperation, log.OpUpdate)
	return s.Get(ctx, id)
}

// Delete deactivates the donor; the record stays for its donation history.
func (s *DonorService) Delete(ctx context.Context, id string) (core.Donor, error) {
	inactive := false
	d, err := s.Update(ctx, id, core.DonorPatch{IsActive: &inactive})
	if err != nil {
		return core.Donor{}, err
	}
	s.logger.InfoContext(ctx, "Donor deactivated", log.FieldDonorID, id, log.FieldOperation, log.OpDelete)
	return d, nil
}

func (s *DonorService) List(ctx context.Context, f core.DonorFilter, p core.PageRequest) (core.Page[core.Donor], error) {
	if err := p.Validate(); err != nil {
		return core.Page[core.Donor]{}, err
	}
	items, total, err := s.store.ListDonors(ctx, f, p)
	if err != nil {
		return core.Page[core.Donor]{}, fmt.Errorf("list donors: %w", err)
	}
	return core.NewPage(items, p, total), nil
}
