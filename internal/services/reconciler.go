package services

import (
	"context"
	"fmt"

	"donations/internal/core"
	"donations/internal/log"
	"donations/internal/ports"
)

// Reconciler recomputes every materialized total from the donation records and
// rewrites the ones that drifted. Sums span every payment status, matching the
// creation-time increments. Each rewrite is a single store statement, so
// increments committed before it are kept. A donation stored but not yet
// incremented when its donor is recomputed is counted twice until the next run.
type Reconciler struct {
	store  ports.Store
	logger *log.Logger
}

func NewReconciler(store ports.Store, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Discard()
	}
	return &Reconciler{store: store, logger: logger.WithComponent(log.ComponentReconcile)}
}

func (r *Reconciler) Reconcile(ctx context.Context) (core.ReconcileReport, error) {
	var report core.ReconcileReport

	donors, err := r.store.ScanDonors(ctx, core.DonorFilter{})
	if err != nil {
		return report, fmt.Errorf("scan donors: %w", err)
	}
	for _, d := range donors {
		report.DonorsChecked++
		changed, err := r.store.RecomputeDonorTotal(ctx, d.ID)
		if err != nil {
			return report, fmt.Errorf("recompute donor %s total: %w", d.ID, err)
		}
		if !changed {
			continue
		}
		report.DonorsCorrected++
		r.logger.InfoContext(ctx, "Corrected donor total",
			log.FieldDonorID, d.ID,
			"from_cents", d.TotalDonated.Cents)
	}

	campaigns, err := r.store.ScanCampaigns(ctx, core.CampaignFilter{})
	if err != nil {
		return report, fmt.Errorf("scan campaigns: %w", err)
	}
	for _, c := range campaigns {
		report.CampaignsChecked++
		changed, err := r.store.RecomputeCampaignAmount(ctx, c.ID)
		if err != nil {
			return report, fmt.Errorf("recompute campaign %s amount: %w", c.ID, err)
		}
		if !changed {
			continue
		}
		report.CampaignsCorrected++
		r.logger.InfoContext(ctx, "Corrected campaign amount",
			log.FieldCampaignID, c.ID,
			"from_cents", c.CurrentAmount.Cents)
	}

	r.logger.InfoContext(ctx, "Reconciliation finished",
		log.FieldOperation, log.OpReconcile,
		"donors_corrected", report.DonorsCorrected,
		"campaigns_corrected", report.CampaignsCorrected)
	return report, nil
}
