package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"donations/internal/core"
	"donations/internal/storage/memory"
	"donations/internal/storage/storetest"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func donation(donorID string, cents int64, status core.PaymentStatus, at time.Time) core.Donation {
	return storetest.Donation(donorID, "", cents, status, at)
}

func TestMonthlyTrendGroupsByMonth(t *testing.T) {
	in := []core.Donation{
		donation("a", 1000, core.StatusCompleted, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		donation("b", 2500, core.StatusCompleted, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)),
		donation("a", 700, core.StatusCompleted, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
	}
	got := monthlyTrend(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", got)
	}
	if got[0].Year != 2024 || got[0].Month != 1 || got[0].Count != 2 || got[0].TotalAmount.Cents != 3500 {
		t.Fatalf("unexpected January bucket %+v", got[0])
	}
	if got[1].Year != 2023 || got[1].Month != 12 {
		t.Fatalf("expected December 2023 second, got %+v", got[1])
	}
}

func TestMonthlyTrendCapsAtTwelve(t *testing.T) {
	var in []core.Donation
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		in = append(in, donation("a", 100, core.StatusCompleted, start.AddDate(0, i, 0)))
	}
	got := monthlyTrend(in)
	if len(got) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(got))
	}
	if got[0].Year != 2024 || got[0].Month != 2 {
		t.Fatalf("expected most recent month first, got %+v", got[0])
	}
	if got[11].Year != 2023 || got[11].Month != 3 {
		t.Fatalf("expected oldest kept month 2023-03, got %+v", got[11])
	}
}

func TestTopDonorsRanking(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	donors := map[string]core.Donor{
		"A": {ID: "A", FirstName: "Alice", LastName: "Smith", DonorType: core.Individual},
		"B": {ID: "B", FirstName: "Bob", LastName: "Jones", DonorType: core.Corporate},
	}
	in := []core.Donation{
		donation("A", 5000, core.StatusCompleted, at),
		donation("A", 5000, core.StatusCompleted, at),
		donation("A", 5000, core.StatusCompleted, at),
		donation("B", 20000, core.StatusCompleted, at),
	}
	got := topDonors(in, donors, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 donors, got %+v", got)
	}
	if got[0].DonorID != "B" || got[0].TotalAmount.Cents != 20000 || got[0].Count != 1 {
		t.Fatalf("expected B first with $200, got %+v", got[0])
	}
	if got[1].DonorID != "A" || got[1].TotalAmount.Cents != 15000 || got[1].Count != 3 {
		t.Fatalf("expected A second with $150, got %+v", got[1])
	}
	if got[0].FullName != "Bob Jones" || got[0].DonorType != core.Corporate {
		t.Fatalf("donor details not joined: %+v", got[0])
	}

	if n := len(topDonors(in, donors, 1)); n != 1 {
		t.Fatalf("expected ranking cut to 1, got %d", n)
	}
	if got := topDonors(nil, donors, 10); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestRetentionHistogram(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	in := []core.Donation{
		donation("a", 1, core.StatusCompleted, at),
		donation("a", 1, core.StatusCompleted, at),
		donation("a", 1, core.StatusCompleted, at),
		donation("b", 1, core.StatusCompleted, at),
		donation("c", 1, core.StatusCompleted, at),
	}
	got := retention(in)
	want := []core.RetentionBucket{{Donations: 1, Donors: 2}, {Donations: 3, Donors: 1}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDistributionOrder(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cash := donation("a", 500, core.StatusCompleted, at)
	card := donation("a", 900, core.StatusCompleted, at)
	card.PaymentMethod = core.CreditCard
	eur := donation("a", 300, core.StatusCompleted, at)
	eur.Currency = core.EUR

	got := distribution([]core.Donation{cash, card, eur}, byPaymentMethod)
	if got[0].Key != "credit_card" || got[1].Key != "cash" || got[1].Count != 2 || got[1].TotalAmount.Cents != 800 {
		t.Fatalf("unexpected payment methods %+v", got)
	}
	cur := distribution([]core.Donation{cash, card, eur}, byCurrency)
	if cur[0].Key != "USD" || cur[0].TotalAmount.Cents != 1400 || cur[1].Key != "EUR" {
		t.Fatalf("unexpected currencies %+v", cur)
	}
}

func TestCampaignAggregates(t *testing.T) {
	campaigns := []core.Campaign{
		{ID: "1", Status: core.CampaignActive, Category: core.CategoryEducation, Goal: core.Money{Cents: 1000}, CurrentAmount: core.Money{Cents: 500}},
		{ID: "2", Status: core.CampaignCompleted, Category: core.CategoryEducation, Goal: core.Money{Cents: 1000}, CurrentAmount: core.Money{Cents: 1500}},
		{ID: "3", Status: core.CampaignCompleted, Category: core.CategoryArts, Goal: core.Money{Cents: 3000}, CurrentAmount: core.Money{Cents: 100}},
		{ID: "4", Status: core.CampaignDraft, Category: core.CategoryHealthcare, Goal: core.Money{Cents: 1000}, CurrentAmount: core.Money{Cents: 9000}},
		{ID: "5", Status: core.CampaignActive, Category: core.CategoryPoverty},
	}

	perf := categoryPerformance(campaigns)
	if len(perf) != 3 {
		t.Fatalf("drafts must be excluded, got %+v", perf)
	}
	if perf[0].Category != core.CategoryEducation || perf[0].Count != 2 || perf[0].TotalRaised.Cents != 2000 || perf[0].SuccessRate != 100 {
		t.Fatalf("unexpected education row %+v", perf[0])
	}
	for _, p := range perf {
		if p.Category == core.CategoryPoverty && p.SuccessRate != 0 {
			t.Fatalf("zero goal must yield 0 success rate, got %v", p.SuccessRate)
		}
	}

	rate := completionRate(campaigns)
	if rate.Completed != 2 || rate.AverageGoal.Cents != 2000 || rate.AverageRaised.Cents != 800 {
		t.Fatalf("unexpected completion rate %+v", rate)
	}
	if empty := completionRate(nil); empty.AverageGoal.Cents != 0 {
		t.Fatalf("empty completion rate must be zero, got %+v", empty)
	}

	top := topCampaigns(campaigns, 10)
	if len(top) != 4 || top[0].ID != "2" || top[0].ProgressPercentage != 100 {
		t.Fatalf("unexpected top campaigns %+v", top)
	}

	status := statusDistribution(campaigns)
	if status[0].Count != 2 || len(status) != 3 {
		t.Fatalf("unexpected status distribution %+v", status)
	}
}

func seed(t *testing.T) (*memory.Store, core.Donor, core.Donor) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	old := storetest.Donor("Old", "Timer", "old@example.com", now.AddDate(-1, 0, 0))
	fresh := storetest.Donor("New", "Comer", "new@example.com", now.AddDate(0, 0, -3))
	fresh.DonorType = core.Corporate
	gone := storetest.Donor("Gone", "Away", "gone@example.com", now.AddDate(0, 0, -2))
	gone.IsActive = false
	for _, d := range []core.Donor{old, fresh, gone} {
		if err := s.CreateDonor(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	active := storetest.Campaign("Active one", 10000, now.AddDate(0, -1, 0))
	active.Status = core.CampaignActive
	draft := storetest.Campaign("Draft one", 10000, now.AddDate(0, -1, 0))
	for _, c := range []core.Campaign{active, draft} {
		if err := s.CreateCampaign(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	donations := []core.Donation{
		donation(old.ID, 10000, core.StatusCompleted, now.AddDate(0, -3, 0)),
		donation(old.ID, 2000, core.StatusCompleted, now.AddDate(0, 0, -10)),
		donation(fresh.ID, 5000, core.StatusCompleted, now.AddDate(0, 0, -1)),
		donation(fresh.ID, 9900, core.StatusPending, now.AddDate(0, 0, -1)),
		donation(old.ID, 300, core.StatusFailed, now.AddDate(0, 0, -5)),
	}
	for _, d := range donations {
		if err := s.CreateDonation(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	return s, old, fresh
}

func TestDashboard(t *testing.T) {
	s, _, _ := seed(t)
	e := NewEngine(s, nil)
	e.now = func() time.Time { return now }

	got, err := e.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if got.TotalDonations != 5 {
		t.Fatalf("total donations = %d, want 5", got.TotalDonations)
	}
	if got.TotalAmount.Cents != 17000 {
		t.Fatalf("total amount = %d, want 17000", got.TotalAmount.Cents)
	}
	if got.RecentDonations != 2 || got.RecentAmount.Cents != 7000 {
		t.Fatalf("recent = %d/%d, want 2/7000", got.RecentDonations, got.RecentAmount.Cents)
	}
	if got.ActiveDonors != 2 || got.NewDonors != 2 {
		t.Fatalf("donors active=%d new=%d", got.ActiveDonors, got.NewDonors)
	}
	if got.TotalCampaigns != 2 || got.ActiveCampaigns != 1 {
		t.Fatalf("campaigns total=%d active=%d", got.TotalCampaigns, got.ActiveCampaigns)
	}
	if len(got.MonthlyTrend) != 2 || len(got.PaymentMethods) != 1 {
		t.Fatalf("trend=%+v methods=%+v", got.MonthlyTrend, got.PaymentMethods)
	}
}

// scanRecorder records the donation filters each scan asks the store for.
type scanRecorder struct {
	Reader
	mu    sync.Mutex
	scans []core.DonationFilter
}

func (r *scanRecorder) ScanDonations(ctx context.Context, f core.DonationFilter) ([]core.Donation, error) {
	r.mu.Lock()
	r.scans = append(r.scans, f)
	r.mu.Unlock()
	return r.Reader.ScanDonations(ctx, f)
}

func TestDashboardScansCompletedOnly(t *testing.T) {
	s, _, _ := seed(t)
	rec := &scanRecorder{Reader: s}
	e := NewEngine(rec, nil)
	e.now = func() time.Time { return now }

	got, err := e.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if got.TotalDonations != 5 {
		t.Fatalf("total donations = %d, want 5", got.TotalDonations)
	}
	if len(rec.scans) != 1 || rec.scans[0].Status != core.StatusCompleted {
		t.Fatalf("dashboard scans = %+v, want one completed-only scan", rec.scans)
	}
}

func TestDonationAnalyticsFilters(t *testing.T) {
	s, _, _ := seed(t)
	e := NewEngine(s, nil)

	got, err := e.DonationAnalytics(context.Background(), core.DonationFilter{DonorType: core.Corporate})
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if got.Summary.Count != 1 || got.Summary.TotalAmount.Cents != 5000 || got.Summary.AverageAmount.Cents != 5000 {
		t.Fatalf("unexpected summary %+v", got.Summary)
	}

	from := now.AddDate(0, 0, -30)
	got, _ = e.DonationAnalytics(context.Background(), core.DonationFilter{From: &from})
	if got.Summary.Count != 2 || got.Summary.AverageAmount.Cents != 3500 {
		t.Fatalf("unexpected ranged summary %+v", got.Summary)
	}
	if len(got.DailyTrend) != 2 || got.DailyTrend[0].Day != 5 || got.DailyTrend[1].Day != 14 {
		t.Fatalf("daily trend must be ascending, got %+v", got.DailyTrend)
	}
}

func TestDonorAnalytics(t *testing.T) {
	s, old, _ := seed(t)
	e := NewEngine(s, nil)

	got, err := e.DonorAnalytics(context.Background())
	if err != nil {
		t.Fatalf("donor analytics: %v", err)
	}
	if len(got.TopDonors) != 2 || got.TopDonors[0].DonorID != old.ID || got.TopDonors[0].TotalAmount.Cents != 12000 {
		t.Fatalf("unexpected top donors %+v", got.TopDonors)
	}
	if len(got.Retention) != 2 || got.Retention[0] != (core.RetentionBucket{Donations: 1, Donors: 1}) {
		t.Fatalf("unexpected retention %+v", got.Retention)
	}
	if len(got.NewDonorTrend) != 2 || got.NewDonorTrend[0].Month != 6 {
		t.Fatalf("unexpected new donor trend %+v", got.NewDonorTrend)
	}
}

func TestEmptyStoreYieldsEmptyLists(t *testing.T) {
	e := NewEngine(memory.New(), nil)
	ctx := context.Background()

	dash, err := e.Dashboard(ctx)
	if err != nil || dash.MonthlyTrend == nil || dash.PaymentMethods == nil {
		t.Fatalf("dashboard on empty store: %+v, %v", dash, err)
	}
	ca, err := e.CampaignAnalytics(ctx)
	if err != nil || ca.TopCampaigns == nil || ca.CategoryPerformance == nil {
		t.Fatalf("campaign analytics on empty store: %+v, %v", ca, err)
	}
	da, err := e.DonationAnalytics(ctx, core.DonationFilter{})
	if err != nil || da.Summary.AverageAmount.Cents != 0 {
		t.Fatalf("donation analytics on empty store: %+v, %v", da, err)
	}
}
