// Package analytics computes the read-side reports over donors, campaigns and
// donations. Every report is computed on demand from the store; nothing is cached.
package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"donations/internal/core"
	"donations/internal/log"
)

// Reader is the slice of the store the engine reads from.
type Reader interface {
	ScanDonors(ctx context.Context, f core.DonorFilter) ([]core.Donor, error)
	ScanCampaigns(ctx context.Context, f core.CampaignFilter) ([]core.Campaign, error)
	ScanDonations(ctx context.Context, f core.DonationFilter) ([]core.Donation, error)
	CountDonations(ctx context.Context, f core.DonationFilter) (int, error)
}

type Engine struct {
	store  Reader
	logger *log.Logger
	now    func() time.Time
}

func NewEngine(store Reader, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	return &Engine{store: store, logger: logger.WithComponent(log.ComponentAnalytics), now: time.Now}
}

// Dashboard summarizes the whole organization. Amounts and the trailing
// 30-day window count completed donations only.
func (e *Engine) Dashboard(ctx context.Context) (core.Dashboard, error) {
	var (
		count     int
		done      []core.Donation
		donors    []core.Donor
		campaigns []core.Campaign
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		count, err = e.store.CountDonations(gctx, core.DonationFilter{})
		return err
	})
	g.Go(func() (err error) {
		done, err = e.store.ScanDonations(gctx, core.DonationFilter{Status: core.StatusCompleted})
		return err
	})
	g.Go(func() (err error) {
		donors, err = e.store.ScanDonors(gctx, core.DonorFilter{})
		return err
	})
	g.Go(func() (err error) {
		campaigns, err = e.store.ScanCampaigns(gctx, core.CampaignFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard data: %w", err)
	}

	cutoff := e.now().UTC().AddDate(0, 0, -30)
	recent := since(done, cutoff)

	dash := core.Dashboard{
		TotalDonations:  count,
		TotalAmount:     summarize(done).TotalAmount,
		RecentDonations: len(recent),
		RecentAmount:    summarize(recent).TotalAmount,
		TotalCampaigns:  len(campaigns),
		MonthlyTrend:    monthlyTrend(done),
		PaymentMethods:  distribution(done, byPaymentMethod),
	}
	for _, d := range donors {
		if d.IsActive {
			dash.ActiveDonors++
		}
		if !d.CreatedAt.Before(cutoff) {
			dash.NewDonors++
		}
	}
	for _, c := range campaigns {
		if c.Status == core.CampaignActive {
			dash.ActiveCampaigns++
		}
	}

	e.logger.DebugContext(ctx, "Dashboard computed",
		"donations", dash.TotalDonations, "donors", len(donors), "campaigns", dash.TotalCampaigns)
	return dash, nil
}

// DonationStats returns the monthly trend and payment method breakdown of
// completed donations.
func (e *Engine) DonationStats(ctx context.Context) (core.DonationStats, error) {
	done, err := e.store.ScanDonations(ctx, core.DonationFilter{Status: core.StatusCompleted})
	if err != nil {
		return core.DonationStats{}, fmt.Errorf("scan donations: %w", err)
	}
	return core.DonationStats{
		MonthlyTrend:   monthlyTrend(done),
		PaymentMethods: distribution(done, byPaymentMethod),
	}, nil
}

// DonationAnalytics reports on completed donations matching f. f's status is
// ignored.
func (e *Engine) DonationAnalytics(ctx context.Context, f core.DonationFilter) (core.DonationAnalytics, error) {
	f.Status = core.StatusCompleted
	done, err := e.store.ScanDonations(ctx, f)
	if err != nil {
		return core.DonationAnalytics{}, fmt.Errorf("scan donations: %w", err)
	}
	return core.DonationAnalytics{
		Summary:        summarize(done),
		DailyTrend:     dailyTrend(done),
		PaymentMethods: distribution(done, byPaymentMethod),
		Currencies:     distribution(done, byCurrency),
	}, nil
}

func (e *Engine) DonorAnalytics(ctx context.Context) (core.DonorAnalytics, error) {
	var (
		done   []core.Donation
		donors []core.Donor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		done, err = e.store.ScanDonations(gctx, core.DonationFilter{Status: core.StatusCompleted})
		return err
	})
	g.Go(func() (err error) {
		donors, err = e.store.ScanDonors(gctx, core.DonorFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DonorAnalytics{}, fmt.Errorf("load donor data: %w", err)
	}

	byID := make(map[string]core.Donor, len(donors))
	active := make([]core.Donor, 0, len(donors))
	for _, d := range donors {
		byID[d.ID] = d
		if d.IsActive {
			active = append(active, d)
		}
	}
	return core.DonorAnalytics{
		Retention:     retention(done),
		TopDonors:     topDonors(done, byID, topN),
		NewDonorTrend: newDonorTrend(active),
	}, nil
}

func (e *Engine) CampaignAnalytics(ctx context.Context) (core.CampaignAnalytics, error) {
	campaigns, err := e.store.ScanCampaigns(ctx, core.CampaignFilter{})
	if err != nil {
		return core.CampaignAnalytics{}, fmt.Errorf("scan campaigns: %w", err)
	}
	return core.CampaignAnalytics{
		StatusDistribution:  statusDistribution(campaigns),
		CategoryPerformance: categoryPerformance(campaigns),
		CompletionRate:      completionRate(campaigns),
		TopCampaigns:        topCampaigns(campaigns, topN),
	}, nil
}
