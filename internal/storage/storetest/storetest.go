// Package storetest holds the behaviour every ports.Store implementation must share.
package storetest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"donations/internal/core"
	"donations/internal/ports"
)

var base = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

// Run exercises a fresh store from newStore in every subtest.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("DonorRoundTrip", func(t *testing.T) { testDonorRoundTrip(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("DonorListing", func(t *testing.T) { testDonorListing(t, newStore(t)) })
	t.Run("CampaignListing", func(t *testing.T) { testCampaignListing(t, newStore(t)) })
	t.Run("DonationFilters", func(t *testing.T) { testDonationFilters(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, newStore(t)) })
	t.Run("Totals", func(t *testing.T) { testTotals(t, newStore(t)) })
}

func Donor(first, last, email string, created time.Time) core.Donor {
	d := core.Donor{
		ID:        core.NewID(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	d.Normalize()
	return d
}

func Campaign(name string, goal int64, created time.Time) core.Campaign {
	c := core.Campaign{
		ID:          core.NewID(),
		Name:        name,
		Description: "A campaign used in tests",
		Goal:        core.Money{Cents: goal},
		StartDate:   created,
		EndDate:     created.AddDate(0, 3, 0),
		IsPublic:    true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	c.Normalize()
	return c
}

func Donation(donorID, campaignID string, cents int64, status core.PaymentStatus, created time.Time) core.Donation {
	d := core.Donation{
		ID:            core.NewID(),
		DonorID:       donorID,
		CampaignID:    campaignID,
		Amount:        core.Money{Cents: cents},
		PaymentMethod: core.Cash,
		PaymentStatus: status,
		TransactionID: core.NewTransactionID(created),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	d.Normalize()
	return d
}

func mustCreateDonor(t *testing.T, s ports.Store, d core.Donor) core.Donor {
	t.Helper()
	if err := s.CreateDonor(context.Background(), d); err != nil {
		t.Fatalf("create donor: %v", err)
	}
	return d
}

func mustCreateCampaign(t *testing.T, s ports.Store, c core.Campaign) core.Campaign {
	t.Helper()
	if err := s.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func mustCreateDonation(t *testing.T, s ports.Store, d core.Donation) core.Donation {
	t.Helper()
	if err := s.CreateDonation(context.Background(), d); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return d
}

func testDonorRoundTrip(t *testing.T, s ports.Store) {
	ctx := context.Background()
	dob := time.Date(1990, 2, 3, 0, 0, 0, 0, time.UTC)
	d := Donor("Ada", "Lovelace", "ada@example.com", base)
	d.DateOfBirth = &dob
	d.Tags = []string{"vip"}
	d.Address.City = "London"
	mustCreateDonor(t, s, d)

	got, err := s.GetDonor(ctx, d.ID)
	if err != nil {
		t.Fatalf("get donor: %v", err)
	}
	if got.Email != d.Email || got.Address.City != "London" || got.Address.Country != core.DefaultCountry {
		t.Fatalf("unexpected donor %+v", got)
	}
	if got.DateOfBirth == nil || !got.DateOfBirth.Equal(dob) {
		t.Fatalf("date of birth lost: %v", got.DateOfBirth)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "vip" {
		t.Fatalf("tags lost: %v", got.Tags)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, base)
	}

	if err := s.IncrementDonorTotal(ctx, d.ID, core.Money{Cents: 500}, base); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got.FirstName = "Augusta"
	got.TotalDonated = core.Money{Cents: 999999}
	if err := s.UpdateDonor(ctx, got); err != nil {
		t.Fatalf("update donor: %v", err)
	}
	got, _ = s.GetDonor(ctx, d.ID)
	if got.FirstName != "Augusta" {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.TotalDonated.Cents != 500 {
		t.Fatalf("update must not overwrite totals, got %d", got.TotalDonated.Cents)
	}
	if got.LastDonationDate == nil || !got.LastDonationDate.Equal(base) {
		t.Fatalf("last donation date = %v", got.LastDonationDate)
	}
}

func testDuplicateEmail(t *testing.T, s ports.Store) {
	ctx := context.Background()
	a := mustCreateDonor(t, s, Donor("A", "B", "a@b.com", base))
	inactive := Donor("C", "D", "c@d.com", base)
	inactive.IsActive = false
	mustCreateDonor(t, s, inactive)

	dup := Donor("X", "Y", "A@B.com", base)
	dup.Email = "A@B.com"
	if err := s.CreateDonor(ctx, dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.CreateDonor(ctx, Donor("X", "Y", "c@d.com", base)); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict against inactive donor, got %v", err)
	}
	a.Email = "c@d.com"
	if err := s.UpdateDonor(ctx, a); !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email on update, got %v", err)
	}
}

func testDonorListing(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustCreateDonor(t, s, Donor("Zed", "Adams", "zed@example.com", base))
	mustCreateDonor(t, s, Donor("Amy", "Adams", "amy@example.com", base))
	corp := Donor("Acme", "Corp", "giving@acme.org", base)
	corp.DonorType = core.Corporate
	mustCreateDonor(t, s, corp)
	gone := Donor("Old", "Friend", "old@example.com", base)
	gone.IsActive = false
	mustCreateDonor(t, s, gone)

	all, total, err := s.ListDonors(ctx, core.DonorFilter{}, core.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Fatalf("expected 4 donors, got %d/%d", len(all), total)
	}
	if all[0].FirstName != "Amy" || all[1].FirstName != "Zed" || all[2].LastName != "Corp" {
		t.Fatalf("unexpected order: %s %s, %s %s", all[0].FirstName, all[0].LastName, all[1].FirstName, all[1].LastName)
	}

	page, total, _ := s.ListDonors(ctx, core.DonorFilter{}, core.PageRequest{Page: 2, Limit: 3})
	if total != 4 || len(page) != 1 {
		t.Fatalf("page 2: got %d items of %d", len(page), total)
	}
	beyond, _, _ := s.ListDonors(ctx, core.DonorFilter{}, core.PageRequest{Page: 5, Limit: 3})
	if len(beyond) != 0 {
		t.Fatalf("page beyond the last must be empty, got %d", len(beyond))
	}
	for _, req := range []core.PageRequest{
		{Page: math.MaxInt, Limit: 10},
		{Page: math.MaxInt/core.MaxLimit + 2, Limit: core.MaxLimit},
	} {
		huge, total, err := s.ListDonors(ctx, core.DonorFilter{}, req)
		if err != nil {
			t.Fatalf("page %d: %v", req.Page, err)
		}
		if len(huge) != 0 || total != 4 {
			t.Fatalf("page %d: got %d items of %d", req.Page, len(huge), total)
		}
	}

	active := true
	cases := []struct {
		name   string
		filter core.DonorFilter
		want   int
	}{
		{"search last name", core.DonorFilter{Search: "ADAMS"}, 2},
		{"search email", core.DonorFilter{Search: "acme"}, 1},
		{"search literal percent", core.DonorFilter{Search: "%"}, 0},
		{"type", core.DonorFilter{DonorType: core.Corporate}, 1},
		{"active", core.DonorFilter{IsActive: &active}, 3},
	}
	for _, tc := range cases {
		_, n, err := s.ListDonors(ctx, tc.filter, core.PageRequest{Page: 1, Limit: 10})
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if n != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.name, n, tc.want)
		}
	}
}

func testCampaignListing(t *testing.T, s ports.Store) {
	ctx := context.Background()
	older := mustCreateCampaign(t, s, Campaign("Older", 1000, base))
	newer := Campaign("Newer", 1000, base.Add(time.Hour))
	newer.Status = core.CampaignActive
	newer.IsFeatured = true
	newer.Category = core.CategoryHealthcare
	mustCreateCampaign(t, s, newer)

	items, total, err := s.ListCampaigns(ctx, core.CampaignFilter{}, core.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || items[0].ID != newer.ID || items[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", items)
	}

	featured := true
	_, n, _ := s.ListCampaigns(ctx, core.CampaignFilter{IsFeatured: &featured}, core.PageRequest{Page: 1, Limit: 10})
	if n != 1 {
		t.Fatalf("featured filter: got %d", n)
	}
	_, n, _ = s.ListCampaigns(ctx, core.CampaignFilter{Status: core.CampaignActive, Category: core.CategoryHealthcare}, core.PageRequest{Page: 1, Limit: 10})
	if n != 1 {
		t.Fatalf("status+category filter: got %d", n)
	}

	if err := s.DeleteCampaign(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetCampaign(ctx, older.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func testDonationFilters(t *testing.T, s ports.Store) {
	ctx := context.Background()
	ind := mustCreateDonor(t, s, Donor("A", "B", "a@b.com", base))
	corp := Donor("C", "D", "c@d.com", base)
	corp.DonorType = core.Corporate
	mustCreateDonor(t, s, corp)
	camp := mustCreateCampaign(t, s, Campaign("Water", 10000, base))

	jan5 := mustCreateDonation(t, s, Donation(ind.ID, camp.ID, 1000, core.StatusCompleted, base))
	mustCreateDonation(t, s, Donation(ind.ID, "", 2000, core.StatusPending, base.AddDate(0, 0, 15)))
	mustCreateDonation(t, s, Donation(corp.ID, camp.ID, 3000, core.StatusCompleted, base.AddDate(0, 1, 0)))

	dup := Donation(ind.ID, "", 100, core.StatusPending, base)
	dup.TransactionID = jan5.TransactionID
	if err := s.CreateDonation(ctx, dup); !errors.Is(err, core.ErrDuplicateTransactionID) {
		t.Fatalf("expected duplicate transaction id, got %v", err)
	}

	from := base
	to := base.AddDate(0, 0, 15)
	cases := []struct {
		name   string
		filter core.DonationFilter
		want   int
	}{
		{"all", core.DonationFilter{}, 3},
		{"status", core.DonationFilter{Status: core.StatusCompleted}, 2},
		{"campaign", core.DonationFilter{CampaignID: camp.ID}, 2},
		{"donor", core.DonationFilter{DonorID: ind.ID}, 2},
		{"donor type", core.DonationFilter{DonorType: core.Corporate}, 1},
		{"inclusive range", core.DonationFilter{From: &from, To: &to}, 2},
		{"open end", core.DonationFilter{From: &to}, 2},
	}
	for _, tc := range cases {
		items, n, err := s.ListDonations(ctx, tc.filter, core.PageRequest{Page: 1, Limit: 10})
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if n != tc.want || len(items) != tc.want {
			t.Fatalf("%s: got %d/%d, want %d", tc.name, len(items), n, tc.want)
		}
		count, err := s.CountDonations(ctx, tc.filter)
		if err != nil || count != tc.want {
			t.Fatalf("%s: count = %d, %v, want %d", tc.name, count, err, tc.want)
		}
	}

	items, _, _ := s.ListDonations(ctx, core.DonationFilter{}, core.PageRequest{Page: 1, Limit: 10})
	if !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}

	n, err := s.CountDonationsByCampaign(ctx, camp.ID)
	if err != nil || n != 2 {
		t.Fatalf("count by campaign = %d, %v", n, err)
	}

	jan5.PaymentStatus = core.StatusRefunded
	jan5.TransactionID = "TXN-overwritten"
	if err := s.UpdateDonation(ctx, jan5); err != nil {
		t.Fatalf("update donation: %v", err)
	}
	got, _ := s.GetDonation(ctx, jan5.ID)
	if got.PaymentStatus != core.StatusRefunded || got.TransactionID == "TXN-overwritten" {
		t.Fatalf("unexpected donation after update: %+v", got)
	}
	if got.CampaignID != camp.ID {
		t.Fatalf("campaign reference lost: %q", got.CampaignID)
	}

	if err := s.DeleteDonation(ctx, jan5.ID); err != nil {
		t.Fatalf("delete donation: %v", err)
	}
	if _, err := s.GetDonation(ctx, jan5.ID); !errors.Is(err, core.ErrDonationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testNotFound(t *testing.T, s ports.Store) {
	ctx := context.Background()
	id := core.NewID()
	if _, err := s.GetDonor(ctx, id); !errors.Is(err, core.ErrDonorNotFound) {
		t.Fatalf("get donor: %v", err)
	}
	if err := s.UpdateCampaign(ctx, core.Campaign{ID: id}); !errors.Is(err, core.ErrCampaignNotFound) {
		t.Fatalf("update campaign: %v", err)
	}
	if err := s.DeleteDonation(ctx, id); !errors.Is(err, core.ErrDonationNotFound) {
		t.Fatalf("delete donation: %v", err)
	}
	if err := s.IncrementDonorTotal(ctx, id, core.Money{Cents: 1}, base); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("increment donor: %v", err)
	}
	if err := s.IncrementCampaignAmount(ctx, id, core.Money{Cents: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("increment campaign: %v", err)
	}
}

func testConcurrentIncrements(t *testing.T, s ports.Store) {
	ctx := context.Background()
	d := mustCreateDonor(t, s, Donor("A", "B", "a@b.com", base))
	c := mustCreateCampaign(t, s, Campaign("Roof", 100000, base))

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.IncrementDonorTotal(ctx, d.ID, core.Money{Cents: 100}, base)
			errs <- s.IncrementCampaignAmount(ctx, c.ID, core.Money{Cents: 100})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	gotD, _ := s.GetDonor(ctx, d.ID)
	gotC, _ := s.GetCampaign(ctx, c.ID)
	if gotD.TotalDonated.Cents != workers*100 || gotC.CurrentAmount.Cents != workers*100 {
		t.Fatalf("lost updates: donor=%d campaign=%d", gotD.TotalDonated.Cents, gotC.CurrentAmount.Cents)
	}
}

func testTotals(t *testing.T, s ports.Store) {
	ctx := context.Background()
	d := mustCreateDonor(t, s, Donor("A", "B", "a@b.com", base))
	c := mustCreateCampaign(t, s, Campaign("Roof", 100000, base))
	mustCreateDonation(t, s, Donation(d.ID, c.ID, 1000, core.StatusCompleted, base))
	mustCreateDonation(t, s, Donation(d.ID, "", 250, core.StatusFailed, base.Add(time.Hour)))

	recompute := func(step string, wantDonor, wantCampaign bool) {
		t.Helper()
		changed, err := s.RecomputeDonorTotal(ctx, d.ID)
		if err != nil || changed != wantDonor {
			t.Fatalf("%s: donor changed=%v err=%v, want %v", step, changed, err, wantDonor)
		}
		changed, err = s.RecomputeCampaignAmount(ctx, c.ID)
		if err != nil || changed != wantCampaign {
			t.Fatalf("%s: campaign changed=%v err=%v, want %v", step, changed, err, wantCampaign)
		}
	}
	check := func(step string, donor, campaign int64, last time.Time) {
		t.Helper()
		gotD, _ := s.GetDonor(ctx, d.ID)
		gotC, _ := s.GetCampaign(ctx, c.ID)
		if gotD.TotalDonated.Cents != donor || gotC.CurrentAmount.Cents != campaign {
			t.Fatalf("%s: donor=%d campaign=%d, want %d/%d", step, gotD.TotalDonated.Cents, gotC.CurrentAmount.Cents, donor, campaign)
		}
		if gotD.LastDonationDate == nil || !gotD.LastDonationDate.Equal(last) {
			t.Fatalf("%s: last donation = %v, want %v", step, gotD.LastDonationDate, last)
		}
	}

	recompute("drifted", true, true)
	check("drifted", 1250, 1000, base.Add(time.Hour))
	recompute("settled", false, false)

	// An increment committed alongside its donation row survives the next pass.
	late := base.Add(2 * time.Hour)
	mustCreateDonation(t, s, Donation(d.ID, c.ID, 500, core.StatusPending, late))
	if err := s.IncrementDonorTotal(ctx, d.ID, core.Money{Cents: 500}, late); err != nil {
		t.Fatalf("increment donor: %v", err)
	}
	if err := s.IncrementCampaignAmount(ctx, c.ID, core.Money{Cents: 500}); err != nil {
		t.Fatalf("increment campaign: %v", err)
	}
	recompute("after increment", false, false)
	check("after increment", 1750, 1500, late)

	// An increment with no backing row is drift and gets rolled back.
	if err := s.IncrementDonorTotal(ctx, d.ID, core.Money{Cents: 99}, late); err != nil {
		t.Fatalf("increment donor: %v", err)
	}
	recompute("phantom increment", true, false)
	check("phantom increment", 1750, 1500, late)

	idle := mustCreateDonor(t, s, Donor("No", "Gifts", "none@b.com", base))
	if err := s.IncrementDonorTotal(ctx, idle.ID, core.Money{Cents: 10}, base); err != nil {
		t.Fatalf("increment idle donor: %v", err)
	}
	if changed, err := s.RecomputeDonorTotal(ctx, idle.ID); err != nil || !changed {
		t.Fatalf("idle donor: changed=%v err=%v", changed, err)
	}
	gotIdle, _ := s.GetDonor(ctx, idle.ID)
	if gotIdle.TotalDonated.Cents != 0 || gotIdle.LastDonationDate != nil {
		t.Fatalf("idle donor not cleared: %d %v", gotIdle.TotalDonated.Cents, gotIdle.LastDonationDate)
	}

	for _, id := range []string{core.NewID(), "not-a-uuid"} {
		if changed, err := s.RecomputeDonorTotal(ctx, id); err != nil || changed {
			t.Fatalf("unknown donor %q: changed=%v err=%v", id, changed, err)
		}
		if changed, err := s.RecomputeCampaignAmount(ctx, id); err != nil || changed {
			t.Fatalf("unknown campaign %q: changed=%v err=%v", id, changed, err)
		}
	}
}
