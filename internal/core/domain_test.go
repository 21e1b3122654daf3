package core

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestDonorValidateReportsEveryField(t *testing.T) {
	d := Donor{Email: "nope", DonorType: "alien"}
	err := d.Validate()
	v, ok := IsValidation(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	want := map[string]bool{"firstName": true, "lastName": true, "email": true, "donorType": true}
	if len(v) != len(want) {
		t.Fatalf("expected %d field errors, got %v", len(want), v)
	}
	for _, fe := range v {
		if !want[fe.Field] {
			t.Fatalf("unexpected field error %q", fe.Field)
		}
	}
}

func TestDonorNameLength(t *testing.T) {
	cases := []struct {
		first string
		ok    bool
	}{
		{strings.Repeat("ñ", 50), true},
		{strings.Repeat("ñ", 51), false},
		{"Zoë", true},
	}
	for _, tc := range cases {
		d := Donor{FirstName: tc.first, LastName: "Núñez", Email: "a@b.com", DonorType: Individual}
		err := d.Validate()
		if tc.ok != (err == nil) {
			t.Fatalf("%d runes: ok=%v err=%v", len([]rune(tc.first)), tc.ok, err)
		}
	}
}

func TestDonorNormalize(t *testing.T) {
	d := Donor{FirstName: " Ada ", LastName: "Lovelace", Email: " ADA@Example.COM ", Tags: []string{"a", " a", ""}}
	d.Normalize()
	if d.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", d.Email)
	}
	if d.DonorType != Individual || d.Address.Country != DefaultCountry {
		t.Fatalf("defaults not applied: %+v", d)
	}
	if len(d.Tags) != 1 {
		t.Fatalf("tags not deduplicated: %v", d.Tags)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.FullName() != "Ada Lovelace" {
		t.Fatalf("full name: %q", d.FullName())
	}
}

func TestCampaignValidate(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	good := Campaign{
		Name:        "Clean water",
		Description: "Wells for three villages",
		Goal:        Money{Cents: 100000},
		StartDate:   start,
		EndDate:     start.AddDate(0, 1, 0),
	}
	good.Normalize()
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Status != CampaignDraft || good.Category != CategoryOther {
		t.Fatalf("defaults not applied: %+v", good)
	}

	cases := []struct {
		name   string
		field  string
		mutate func(c *Campaign)
	}{
		{"short name", "name", func(c *Campaign) { c.Name = "ab" }},
		{"two-character CJK name", "name", func(c *Campaign) { c.Name = "教育" }},
		{"long accented name", "name", func(c *Campaign) { c.Name = strings.Repeat("é", 101) }},
		{"short description", "description", func(c *Campaign) { c.Description = "short" }},
		{"zero goal", "goal", func(c *Campaign) { c.Goal = Money{} }},
		{"goal over ceiling", "goal", func(c *Campaign) { c.Goal = Money{Cents: MaxAmountCents + 1} }},
		{"end before start", "endDate", func(c *Campaign) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }},
		{"unknown category", "category", func(c *Campaign) { c.Category = "sports" }},
		{"unknown status", "status", func(c *Campaign) { c.Status = "archived" }},
	}
	for _, tc := range cases {
		c := good
		tc.mutate(&c)
		v, ok := IsValidation(c.Validate())
		if !ok || len(v) != 1 || v[0].Field != tc.field {
			t.Fatalf("%s: expected single %s error, got %v", tc.name, tc.field, v)
		}
	}

	// Limits count characters, not bytes.
	accepted := []func(c *Campaign){
		func(c *Campaign) { c.Name = "教育基金" },
		func(c *Campaign) { c.Name = strings.Repeat("é", 100) },
		func(c *Campaign) { c.Description = strings.Repeat("ü", 2000) },
	}
	for i, mutate := range accepted {
		c := good
		mutate(&c)
		if err := c.Validate(); err != nil {
			t.Fatalf("accepted case %d: %v", i, err)
		}
	}

	same := good
	same.EndDate = same.StartDate
	if _, ok := IsValidation(same.Validate()); !ok {
		t.Fatalf("end date equal to start date must be rejected")
	}
}

func TestDonationValidate(t *testing.T) {
	good := Donation{DonorID: NewID(), Amount: Money{Cents: 2500}, PaymentMethod: Cash}
	good.Normalize()
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Currency != USD || good.PaymentStatus != StatusPending {
		t.Fatalf("defaults not applied: %+v", good)
	}

	recurring := good
	recurring.IsRecurring = true
	v, ok := IsValidation(recurring.Validate())
	if !ok || v[0].Field != "recurringFrequency" {
		t.Fatalf("expected recurringFrequency error, got %v", v)
	}
	recurring.RecurringFrequency = Monthly
	if err := recurring.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	accented := good
	accented.Message = strings.Repeat("é", 500)
	if err := accented.Validate(); err != nil {
		t.Fatalf("500-character message must be accepted: %v", err)
	}
	accented.Message += "é"
	if v, _ := IsValidation(accented.Validate()); len(v) != 1 || v[0].Field != "message" {
		t.Fatalf("expected message error, got %v", v)
	}

	huge := good
	huge.Amount = Money{Cents: MaxAmountCents + 1}
	if v, _ := IsValidation(huge.Validate()); len(v) != 1 || v[0].Field != "amount" {
		t.Fatalf("expected amount error, got %v", v)
	}

	bad := Donation{Currency: "JPY", PaymentMethod: "barter", PaymentStatus: "lost", Message: string(make([]byte, 501))}
	v, _ = IsValidation(bad.Validate())
	if len(v) != 6 {
		t.Fatalf("expected 6 field errors, got %v", v)
	}
}

func TestDonationApplyReceipt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sent := true
	d := Donation{PaymentMethod: Cash, Amount: Money{Cents: 100}}.Apply(DonationPatch{ReceiptSent: &sent}, now)
	if d.ReceiptSentAt == nil || !d.ReceiptSentAt.Equal(now) {
		t.Fatalf("expected receipt timestamp, got %v", d.ReceiptSentAt)
	}
}

func TestProgressPercentage(t *testing.T) {
	cases := []struct {
		current, goal int64
		want          float64
	}{
		{0, 1000, 0},
		{500, 1000, 50},
		{1000, 1000, 100},
		{5000, 1000, 100},
		{500, 0, 0},
	}
	for _, tc := range cases {
		got := ProgressPercentage(Money{Cents: tc.current}, Money{Cents: tc.goal})
		if got != tc.want {
			t.Fatalf("progress(%d,%d) = %v, want %v", tc.current, tc.goal, got, tc.want)
		}
	}
}

func TestCampaignWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Campaign{StartDate: start, EndDate: start.AddDate(0, 0, 10), Status: CampaignActive}

	if got := c.DaysRemaining(start.Add(12 * time.Hour)); got != 10 {
		t.Fatalf("days remaining = %d, want 10", got)
	}
	if got := c.DaysRemaining(start.AddDate(0, 0, 20)); got != 0 {
		t.Fatalf("days remaining after end = %d, want 0", got)
	}
	if !c.IsActiveAt(start.AddDate(0, 0, 1)) {
		t.Fatalf("expected active inside window")
	}
	if c.IsActiveAt(start.AddDate(0, 0, 11)) {
		t.Fatalf("expected inactive after window")
	}
	c.Status = CampaignPaused
	if c.IsActiveAt(start.AddDate(0, 0, 1)) {
		t.Fatalf("paused campaign must not be active")
	}
}

func TestTransactionID(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	id := NewTransactionID(at)
	if !regexp.MustCompile(`^TXN-1700000000123-[0-9A-F]{8}$`).MatchString(id) {
		t.Fatalf("unexpected transaction id %q", id)
	}
	if id == NewTransactionID(at) {
		t.Fatalf("transaction ids must differ")
	}
}

func TestPagination(t *testing.T) {
	cases := []struct {
		total, limit, pages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{250, 100, 3},
	}
	for _, tc := range cases {
		p := NewPagination(PageRequest{Page: 1, Limit: tc.limit}, tc.total)
		if p.TotalPages != tc.pages {
			t.Fatalf("total=%d limit=%d: pages=%d want %d", tc.total, tc.limit, p.TotalPages, tc.pages)
		}
	}
	if err := (PageRequest{Page: 0, Limit: 101}).Validate(); err == nil {
		t.Fatalf("expected page/limit errors")
	}
}
