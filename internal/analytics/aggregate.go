package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"

	"donations/internal/core"
)

const (
	trendBuckets = 12
	topN         = 10
)

// monthlyTrend groups donations by UTC (year, month), most recent first.
func monthlyTrend(donations []core.Donation) []core.MonthBucket {
	type key struct{ year, month int }
	groups := map[key]*core.MonthBucket{}
	for _, d := range donations {
		t := d.CreatedAt.UTC()
		k := key{t.Year(), int(t.Month())}
		b, ok := groups[k]
		if !ok {
			b = &core.MonthBucket{Year: k.year, Month: k.month}
			groups[k] = b
		}
		b.Count++
		b.TotalAmount = b.TotalAmount.Add(d.Amount)
	}

	out := make([]core.MonthBucket, 0, len(groups))
	for _, b := range groups {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b core.MonthBucket) int {
		return cmp.Or(cmp.Compare(b.Year, a.Year), cmp.Compare(b.Month, a.Month))
	})
	return out[:min(len(out), trendBuckets)]
}

// dailyTrend groups donations by UTC calendar day, oldest first.
func dailyTrend(donations []core.Donation) []core.DayBucket {
	type key struct{ year, month, day int }
	groups := map[key]*core.DayBucket{}
	for _, d := range donations {
		t := d.CreatedAt.UTC()
		k := key{t.Year(), int(t.Month()), t.Day()}
		b, ok := groups[k]
		if !ok {
			b = &core.DayBucket{Year: k.year, Month: k.month, Day: k.day}
			groups[k] = b
		}
		b.Count++
		b.TotalAmount = b.TotalAmount.Add(d.Amount)
	}

	out := make([]core.DayBucket, 0, len(groups))
	for _, b := range groups {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b core.DayBucket) int {
		return cmp.Or(cmp.Compare(a.Year, b.Year), cmp.Compare(a.Month, b.Month), cmp.Compare(a.Day, b.Day))
	})
	return out
}

// distribution groups donations by key, largest amount first.
func distribution(donations []core.Donation, key func(core.Donation) string) []core.Distribution {
	groups := map[string]*core.Distribution{}
	for _, d := range donations {
		k := key(d)
		g, ok := groups[k]
		if !ok {
			g = &core.Distribution{Key: k}
			groups[k] = g
		}
		g.Count++
		g.TotalAmount = g.TotalAmount.Add(d.Amount)
	}

	out := make([]core.Distribution, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b core.Distribution) int {
		return cmp.Or(cmp.Compare(b.TotalAmount.Cents, a.TotalAmount.Cents), cmp.Compare(a.Key, b.Key))
	})
	return out
}

func byPaymentMethod(d core.Donation) string { return string(d.PaymentMethod) }

func byCurrency(d core.Donation) string { return string(d.Currency) }

func summarize(donations []core.Donation) core.DonationSummary {
	s := core.DonationSummary{Count: len(donations)}
	for _, d := range donations {
		s.TotalAmount = s.TotalAmount.Add(d.Amount)
	}
	s.AverageAmount = average(s.TotalAmount, s.Count)
	return s
}

// average divides total by n rounding half away from zero; 0 when n is 0.
func average(total core.Money, n int) core.Money {
	if n == 0 {
		return core.Money{}
	}
	return core.Money{Cents: int64(math.Round(float64(total.Cents) / float64(n)))}
}

// percentage is part/whole×100 rounded to two decimals; 0 when whole is 0.
func percentage(part, whole core.Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return math.Round(float64(part.Cents)/float64(whole.Cents)*100*100) / 100
}

// retention histograms how many donors made exactly N donations, ascending by N.
func retention(donations []core.Donation) []core.RetentionBucket {
	perDonor := map[string]int{}
	for _, d := range donations {
		perDonor[d.DonorID]++
	}
	hist := map[int]int{}
	for _, n := range perDonor {
		hist[n]++
	}

	out := make([]core.RetentionBucket, 0, len(hist))
	for n, donors := range hist {
		out = append(out, core.RetentionBucket{Donations: n, Donors: donors})
	}
	slices.SortFunc(out, func(a, b core.RetentionBucket) int { return cmp.Compare(a.Donations, b.Donations) })
	return out
}

// topDonors ranks donors by summed amount, then donation count, then id.
func topDonors(donations []core.Donation, donors map[string]core.Donor, n int) []core.TopDonor {
	groups := map[string]*core.TopDonor{}
	for _, d := range donations {
		g, ok := groups[d.DonorID]
		if !ok {
			g = &core.TopDonor{DonorID: d.DonorID}
			if donor, found := donors[d.DonorID]; found {
				g.FullName = donor.FullName()
				g.Email = donor.Email
				g.DonorType = donor.DonorType
			}
			groups[d.DonorID] = g
		}
		g.Count++
		g.TotalAmount = g.TotalAmount.Add(d.Amount)
	}

	out := make([]core.TopDonor, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b core.TopDonor) int {
		return cmp.Or(
			cmp.Compare(b.TotalAmount.Cents, a.TotalAmount.Cents),
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.DonorID, b.DonorID),
		)
	})
	return out[:min(len(out), n)]
}

// newDonorTrend counts donors by UTC creation month, most recent first.
func newDonorTrend(donors []core.Donor) []core.MonthCount {
	type key struct{ year, month int }
	counts := map[key]int{}
	for _, d := range donors {
		t := d.CreatedAt.UTC()
		counts[key{t.Year(), int(t.Month())}]++
	}

	out := make([]core.MonthCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, core.MonthCount{Year: k.year, Month: k.month, Count: n})
	}
	slices.SortFunc(out, func(a, b core.MonthCount) int {
		return cmp.Or(cmp.Compare(b.Year, a.Year), cmp.Compare(b.Month, a.Month))
	})
	return out[:min(len(out), trendBuckets)]
}

func statusDistribution(campaigns []core.Campaign) []core.StatusCount {
	counts := map[core.CampaignStatus]int{}
	for _, c := range campaigns {
		counts[c.Status]++
	}
	out := make([]core.StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, core.StatusCount{Status: s, Count: n})
	}
	slices.SortFunc(out, func(a, b core.StatusCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Status, b.Status))
	})
	return out
}

func performing(c core.Campaign) bool {
	return c.Status == core.CampaignActive || c.Status == core.CampaignCompleted
}

// categoryPerformance aggregates active and completed campaigns per category,
// largest raised total first.
func categoryPerformance(campaigns []core.Campaign) []core.CategoryPerformance {
	groups := map[core.CampaignCategory]*core.CategoryPerformance{}
	for _, c := range campaigns {
		if !performing(c) {
			continue
		}
		g, ok := groups[c.Category]
		if !ok {
			g = &core.CategoryPerformance{Category: c.Category}
			groups[c.Category] = g
		}
		g.Count++
		g.TotalGoal = g.TotalGoal.Add(c.Goal)
		g.TotalRaised = g.TotalRaised.Add(c.CurrentAmount)
	}

	out := make([]core.CategoryPerformance, 0, len(groups))
	for _, g := range groups {
		g.SuccessRate = percentage(g.TotalRaised, g.TotalGoal)
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b core.CategoryPerformance) int {
		return cmp.Or(cmp.Compare(b.TotalRaised.Cents, a.TotalRaised.Cents), cmp.Compare(a.Category, b.Category))
	})
	return out
}

func completionRate(campaigns []core.Campaign) core.CompletionRate {
	var (
		r            core.CompletionRate
		goal, raised core.Money
	)
	for _, c := range campaigns {
		if c.Status != core.CampaignCompleted {
			continue
		}
		r.Completed++
		goal = goal.Add(c.Goal)
		raised = raised.Add(c.CurrentAmount)
	}
	r.AverageGoal = average(goal, r.Completed)
	r.AverageRaised = average(raised, r.Completed)
	return r
}

// topCampaigns ranks active and completed campaigns by raised amount.
func topCampaigns(campaigns []core.Campaign, n int) []core.TopCampaign {
	eligible := make([]core.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if performing(c) {
			eligible = append(eligible, c)
		}
	}
	slices.SortFunc(eligible, func(a, b core.Campaign) int {
		return cmp.Or(cmp.Compare(b.CurrentAmount.Cents, a.CurrentAmount.Cents), cmp.Compare(a.ID, b.ID))
	})

	out := make([]core.TopCampaign, 0, min(len(eligible), n))
	for _, c := range eligible[:min(len(eligible), n)] {
		out = append(out, core.TopCampaign{
			ID:                 c.ID,
			Name:               c.Name,
			Category:           c.Category,
			Status:             c.Status,
			Goal:               c.Goal,
			CurrentAmount:      c.CurrentAmount,
			ProgressPercentage: c.ProgressPercentage(),
		})
	}
	return out
}

func since(donations []core.Donation, from time.Time) []core.Donation {
	out := make([]core.Donation, 0, len(donations))
	for _, d := range donations {
		if !d.CreatedAt.Before(from) {
			out = append(out, d)
		}
	}
	return out
}
