package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donations/internal/core"
	"donations/internal/log"
	"donations/internal/ports"
)

// EventPublisher announces created donations to downstream consumers.
type EventPublisher interface {
	PublishDonationCreated(ctx context.Context, donationID string) error
}

// DonationService records donations and triggers the totals maintainer.
type DonationService struct {
	store     ports.Store
	totals    *TotalsMaintainer
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
}

// NewDonationService wires the service. publisher may be nil.
func NewDonationService(store ports.Store, totals *TotalsMaintainer, publisher EventPublisher, logger *log.Logger) *DonationService {
	if logger == nil {
		logger = log.Discard()
	}
	if totals == nil {
		totals = NewTotalsMaintainer(store, logger)
	}
	return &DonationService{
		store:     store,
		totals:    totals,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentDonation),
		now:       time.Now,
	}
}

// Create records a donation processed by actor. The donor and the optional
// campaign must exist. Once the donation is stored, the totals update and the
// event publication are best effort and never fail the call.
func (s *DonationService) Create(ctx context.Context, actor string, d core.Donation) (core.Donation, error) {
	d.Normalize()
	errs := validationErrors(d.Validate())
	if d.DonorID != "" && !core.ValidID(d.DonorID) {
		errs.Add("donor", "Invalid donor ID")
	}
	if d.CampaignID != "" && !core.ValidID(d.CampaignID) {
		errs.Add("campaign", "Invalid campaign ID")
	}
	if err := errs.Err(); err != nil {
		return core.Donation{}, err
	}

	if _, err := s.store.GetDonor(ctx, d.DonorID); err != nil {
		return core.Donation{}, fmt.Errorf("resolve donor: %w", err)
	}
	if d.CampaignID != "" {
		if _, err := s.store.GetCampaign(ctx, d.CampaignID); err != nil {
			return core.Donation{}, fmt.Errorf("resolve campaign: %w", err)
		}
	}

	now := s.now().UTC()
	d.ID = core.NewID()
	if d.TransactionID == "" {
		d.TransactionID = core.NewTransactionID(now)
	}
	d.ProcessedBy = actor
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.ReceiptSent && d.ReceiptSentAt == nil {
		d.ReceiptSentAt = &now
	}

	if err := s.store.CreateDonation(ctx, d); err != nil {
		return core.Donation{}, fmt.Errorf("create donation: %w", err)
	}
	s.logger.InfoContext(ctx, "Donation created",
		log.NewFields().WithDonation(d).WithOperation(log.OpCreate).ToSlice()...)

	s.totals.Apply(ctx, d)

	if err := s.publishCreated(ctx, d.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish donation event",
			log.FieldDonationID, d.ID, log.FieldOperation, log.OpPublish, log.FieldError, err)
	}

	return d, nil
}

func (s *DonationService) publishCreated(ctx context.Context, id string) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not available, skipping donation event")
		return nil
	}
	return s.publisher.PublishDonationCreated(ctx, id)
}

func (s *DonationService) Get(ctx context.Context, id string) (core.Donation, error) {
	if !core.ValidID(id) {
		return core.Donation{}, core.ErrInvalidDonationID
	}
	d, err := s.store.GetDonation(ctx, id)
	if err != nil {
		return core.Donation{}, fmt.Errorf("get donation: %w", err)
	}
	return d, nil
}

// Update changes the mutable attributes of a donation. Totals are not adjusted.
func (s *DonationService) Update(ctx context.Context, id string, p core.DonationPatch) (core.Donation, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return core.Donation{}, err
	}
	now := s.now().UTC()
	next := cur.Apply(p, now)
	if err := next.Validate(); err != nil {
		return core.Donation{}, err
	}
	next.UpdatedAt = now
	if err := s.store.UpdateDonation(ctx, next); err != nil {
		return core.Donation{}, fmt.Errorf("update donation: %w", err)
	}
	s.logger.InfoContext(ctx, "Donation updated",
		log.NewFields().WithDonation(next).WithOperation(log.OpUpdate).ToSlice()...)
	return next, nil
}

// Delete removes a donation that has not completed. Totals are not adjusted.
func (s *DonationService) Delete(ctx context.Context, id string) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.PaymentStatus == core.StatusCompleted {
		return core.ErrCompletedDonationDelete
	}
	if err := s.store.DeleteDonation(ctx, id); err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	s.logger.InfoContext(ctx, "Donation deleted", log.FieldDonationID, id, log.FieldOperation, log.OpDelete)
	return nil
}

func (s *DonationService) List(ctx context.Context, f core.DonationFilter, p core.PageRequest) (core.Page[core.Donation], error) {
	if err := p.Validate(); err != nil {
		return core.Page[core.Donation]{}, err
	}
	items, total, err := s.store.ListDonations(ctx, f, p)
	if err != nil {
		return core.Page[core.Donation]{}, fmt.Errorf("list donations: %w", err)
	}
	return core.NewPage(items, p, total), nil
}

func validationErrors(err error) core.ValidationErrors {
	var v core.ValidationErrors
	if errors.As(err, &v) {
		return v
	}
	return nil
}
