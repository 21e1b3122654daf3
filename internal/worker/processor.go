// Package worker handles the donation events consumed by donations-worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"donations/internal/amqp"
	"donations/internal/core"
	"donations/internal/log"
	"donations/internal/sheets"
)

// Store is the read access the processor needs.
type Store interface {
	GetDonation(ctx context.Context, id string) (core.Donation, error)
	GetDonor(ctx context.Context, id string) (core.Donor, error)
	GetCampaign(ctx context.Context, id string) (core.Campaign, error)
}

// Reconciler recomputes derived totals.
type Reconciler interface {
	Reconcile(ctx context.Context) (core.ReconcileReport, error)
}

// Processor exports created donations to the ledger and runs reconciliations.
type Processor struct {
	store      Store
	ledger     sheets.Ledger
	reconciler Reconciler
	logger     *log.Logger
}

// NewProcessor wires the processor. ledger may be nil, in which case
// donation.created messages are acknowledged without export.
func NewProcessor(store Store, ledger sheets.Ledger, reconciler Reconciler, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Processor{
		store:      store,
		ledger:     ledger,
		reconciler: reconciler,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// Handle dispatches msg by type. It matches amqp.Handler.
func (p *Processor) Handle(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeDonationCreated:
		return p.HandleDonationCreated(ctx, msg.DonationID)
	case amqp.TypeReconcileRequested:
		_, err := p.Reconcile(ctx)
		return err
	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

// HandleDonationCreated appends the donation to its year's ledger sheet unless
// a row with the same transaction id is already there.
func (p *Processor) HandleDonationCreated(ctx context.Context, id string) error {
	logger := p.logger.With(log.FieldDonationID, id)
	if p.ledger == nil {
		logger.DebugContext(ctx, "No ledger configured, skipping donation export")
		return nil
	}

	d, err := p.store.GetDonation(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, "Donation no longer exists, skipping export")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get donation: %w", err)
	}

	donor, err := p.store.GetDonor(ctx, d.DonorID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("get donor: %w", err)
	}

	var campaign *core.Campaign
	if d.CampaignID != "" {
		c, err := p.store.GetCampaign(ctx, d.CampaignID)
		switch {
		case err == nil:
			campaign = &c
		case !errors.Is(err, core.ErrNotFound):
			return fmt.Errorf("get campaign: %w", err)
		}
	}

	row := sheets.NewLedgerRow(d, donor, campaign)

	existing, err := p.ledger.TransactionIDs(ctx, row.Date.Year())
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if slices.Contains(existing, row.TransactionID) {
		logger.InfoContext(ctx, "Donation already in ledger", log.FieldTransactionID, row.TransactionID)
		return nil
	}

	ref, err := p.ledger.AppendDonation(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	logger.InfoContext(ctx, "Donation exported to ledger",
		log.FieldTransactionID, row.TransactionID,
		"range", ref)
	return nil
}

// Reconcile runs one reconciliation pass and logs what it corrected.
func (p *Processor) Reconcile(ctx context.Context) (core.ReconcileReport, error) {
	report, err := p.reconciler.Reconcile(ctx)
	if err != nil {
		return report, fmt.Errorf("reconcile totals: %w", err)
	}
	p.logger.InfoContext(ctx, "Totals reconciled",
		"donors_checked", report.DonorsChecked,
		"donors_corrected", report.DonorsCorrected,
		"campaigns_checked", report.CampaignsChecked,
		"campaigns_corrected", report.CampaignsCorrected)
	return report, nil
}
