// Package ports declares the persistence contracts the services and the
// aggregation engine depend on.
package ports

import (
	"context"
	"time"

	"donations/internal/core"
)

// Ports for outbound adapters. Get, update and delete return the entity's
// not-found sentinel when no record matches the id.
type (
	DonorRepository interface {
		CreateDonor(ctx context.Context, d core.Donor) error
		GetDonor(ctx context.Context, id string) (core.Donor, error)
		UpdateDonor(ctx context.Context, d core.Donor) error
		// ListDonors returns one page sorted by last name then first name, plus the
		// total number of matches.
		ListDonors(ctx context.Context, f core.DonorFilter, p core.PageRequest) ([]core.Donor, int, error)
		ScanDonors(ctx context.Context, f core.DonorFilter) ([]core.Donor, error)
		// IncrementDonorTotal atomically adds amount to the donor's lifetime total
		// and stamps the last donation date.
		IncrementDonorTotal(ctx context.Context, id string, amount core.Money, at time.Time) error
		// RecomputeDonorTotal rewrites the total and last donation date from the
		// donation records in one atomic step. It reports whether anything changed;
		// an unknown id changes nothing.
		RecomputeDonorTotal(ctx context.Context, id string) (bool, error)
	}

	CampaignRepository interface {
		CreateCampaign(ctx context.Context, c core.Campaign) error
		GetCampaign(ctx context.Context, id string) (core.Campaign, error)
		UpdateCampaign(ctx context.Context, c core.Campaign) error
		DeleteCampaign(ctx context.Context, id string) error
		// ListCampaigns returns one page, newest first.
		ListCampaigns(ctx context.Context, f core.CampaignFilter, p core.PageRequest) ([]core.Campaign, int, error)
		ScanCampaigns(ctx context.Context, f core.CampaignFilter) ([]core.Campaign, error)
		// IncrementCampaignAmount atomically adds amount to the campaign's raised total.
		IncrementCampaignAmount(ctx context.Context, id string, amount core.Money) error
		RecomputeCampaignAmount(ctx context.Context, id string) (bool, error)
	}

	DonationRepository interface {
		CreateDonation(ctx context.Context, d core.Donation) error
		GetDonation(ctx context.Context, id string) (core.Donation, error)
		UpdateDonation(ctx context.Context, d core.Donation) error
		DeleteDonation(ctx context.Context, id string) error
		// ListDonations returns one page, newest first.
		ListDonations(ctx context.Context, f core.DonationFilter, p core.PageRequest) ([]core.Donation, int, error)
		ScanDonations(ctx context.Context, f core.DonationFilter) ([]core.Donation, error)
		CountDonations(ctx context.Context, f core.DonationFilter) (int, error)
		CountDonationsByCampaign(ctx context.Context, campaignID string) (int, error)
	}

	// Store bundles every repository behind one handle created at startup.
	Store interface {
		DonorRepository
		CampaignRepository
		DonationRepository
		Ping(ctx context.Context) error
		Close() error
	}
)
