package services

import (
	"context"
	"time"

	"donations/internal/core"
	"donations/internal/log"
)

// TotalIncrementer is the slice of the store the totals maintainer writes through.
type TotalIncrementer interface {
	IncrementDonorTotal(ctx context.Context, id string, amount core.Money, at time.Time) error
	IncrementCampaignAmount(ctx context.Context, id string, amount core.Money) error
}

// TotalsMaintainer keeps donor lifetime totals and campaign raised amounts in
// step with newly created donations. Every write is a single atomic increment;
// a failed increment is logged and left for the reconciler.
type TotalsMaintainer struct {
	store  TotalIncrementer
	logger *log.Logger
}

func NewTotalsMaintainer(store TotalIncrementer, logger *log.Logger) *TotalsMaintainer {
	if logger == nil {
		logger = log.Discard()
	}
	return &TotalsMaintainer{store: store, logger: logger.WithComponent(log.ComponentTotals)}
}

// Apply adds the donation's amount to its donor and, when present, its campaign.
// It reports whether both increments succeeded; it never returns an error.
func (t *TotalsMaintainer) Apply(ctx context.Context, d core.Donation) bool {
	ok := true
	if err := t.store.IncrementDonorTotal(ctx, d.DonorID, d.Amount, d.CreatedAt); err != nil {
		ok = false
		t.logger.ErrorContext(ctx, "Failed to update donor total",
			log.NewFields().WithDonation(d).WithOperation(log.OpIncrement).WithError(err).ToSlice()...)
	}
	if d.CampaignID == "" {
		return ok
	}
	if err := t.store.IncrementCampaignAmount(ctx, d.CampaignID, d.Amount); err != nil {
		ok = false
		t.logger.ErrorContext(ctx, "Failed to update campaign amount",
			log.NewFields().WithDonation(d).WithOperation(log.OpIncrement).WithError(err).ToSlice()...)
	}
	return ok
}
