package core

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Individual DonorType = "individual"
	Corporate  DonorType = "corporate"
	Foundation DonorType = "foundation"
)

const (
	CategoryEducation      CampaignCategory = "education"
	CategoryHealthcare     CampaignCategory = "healthcare"
	CategoryEnvironment    CampaignCategory = "environment"
	CategoryPoverty        CampaignCategory = "poverty"
	CategoryDisasterRelief CampaignCategory = "disaster-relief"
	CategoryArts           CampaignCategory = "arts"
	CategoryOther          CampaignCategory = "other"
)

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
)

const (
	CreditCard   PaymentMethod = "credit_card"
	DebitCard    PaymentMethod = "debit_card"
	BankTransfer PaymentMethod = "bank_transfer"
	Check        PaymentMethod = "check"
	Cash         PaymentMethod = "cash"
	PayPal       PaymentMethod = "paypal"
	Stripe       PaymentMethod = "stripe"
	OtherMethod  PaymentMethod = "other"
)

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
	StatusCancelled PaymentStatus = "cancelled"
)

const (
	Weekly    RecurringFrequency = "weekly"
	Monthly   RecurringFrequency = "monthly"
	Quarterly RecurringFrequency = "quarterly"
	Yearly    RecurringFrequency = "yearly"
)

// DefaultCountry is applied to donor addresses that omit a country.
const DefaultCountry = "USA"

type (
	DonorType          string
	CampaignCategory   string
	CampaignStatus     string
	Currency           string
	PaymentMethod      string
	PaymentStatus      string
	RecurringFrequency string

	Address struct {
		Street  string `json:"street,omitempty"`
		City    string `json:"city,omitempty"`
		State   string `json:"state,omitempty"`
		ZipCode string `json:"zipCode,omitempty"`
		Country string `json:"country"`
	}

	Donor struct {
		ID               string     `json:"id"`
		FirstName        string     `json:"firstName"`
		LastName         string     `json:"lastName"`
		Email            string     `json:"email"`
		Phone            string     `json:"phone,omitempty"`
		Address          Address    `json:"address"`
		DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
		DonorType        DonorType  `json:"donorType"`
		IsAnonymous      bool       `json:"isAnonymous"`
		Tags             []string   `json:"tags"`
		Notes            string     `json:"notes,omitempty"`
		IsActive         bool       `json:"isActive"`
		TotalDonated     Money      `json:"totalDonated"`
		LastDonationDate *time.Time `json:"lastDonationDate,omitempty"`
		CreatedAt        time.Time  `json:"createdAt"`
		UpdatedAt        time.Time  `json:"updatedAt"`
	}

	Campaign struct {
		ID            string           `json:"id"`
		Name          string           `json:"name"`
		Description   string           `json:"description"`
		Goal          Money            `json:"goal"`
		CurrentAmount Money            `json:"currentAmount"`
		StartDate     time.Time        `json:"startDate"`
		EndDate       time.Time        `json:"endDate"`
		Category      CampaignCategory `json:"category"`
		Status        CampaignStatus   `json:"status"`
		Image         string           `json:"image,omitempty"`
		Organizer     string           `json:"organizer"`
		Tags          []string         `json:"tags"`
		IsFeatured    bool             `json:"isFeatured"`
		IsPublic      bool             `json:"isPublic"`
		Notes         string           `json:"notes,omitempty"`
		CreatedAt     time.Time        `json:"createdAt"`
		UpdatedAt     time.Time        `json:"updatedAt"`
	}

	Donation struct {
		ID                 string             `json:"id"`
		DonorID            string             `json:"donor"`
		CampaignID         string             `json:"campaign,omitempty"`
		Amount             Money              `json:"amount"`
		Currency           Currency           `json:"currency"`
		PaymentMethod      PaymentMethod      `json:"paymentMethod"`
		PaymentStatus      PaymentStatus      `json:"paymentStatus"`
		TransactionID      string             `json:"transactionId"`
		IsAnonymous        bool               `json:"isAnonymous"`
		IsRecurring        bool               `json:"isRecurring"`
		RecurringFrequency RecurringFrequency `json:"recurringFrequency,omitempty"`
		Message            string             `json:"message,omitempty"`
		Notes              string             `json:"notes,omitempty"`
		ReceiptSent        bool               `json:"receiptSent"`
		ReceiptSentAt      *time.Time         `json:"receiptSentAt,omitempty"`
		ProcessedBy        string             `json:"processedBy"`
		Tags               []string           `json:"tags"`
		CreatedAt          time.Time          `json:"createdAt"`
		UpdatedAt          time.Time          `json:"updatedAt"`
	}
)

var (
	DonorTypes           = []DonorType{Individual, Corporate, Foundation}
	CampaignCategories   = []CampaignCategory{CategoryEducation, CategoryHealthcare, CategoryEnvironment, CategoryPoverty, CategoryDisasterRelief, CategoryArts, CategoryOther}
	CampaignStatuses     = []CampaignStatus{CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted, CampaignCancelled}
	Currencies           = []Currency{USD, EUR, GBP, CAD, AUD}
	PaymentMethods       = []PaymentMethod{CreditCard, DebitCard, BankTransfer, Check, Cash, PayPal, Stripe, OtherMethod}
	PaymentStatuses      = []PaymentStatus{StatusPending, StatusCompleted, StatusFailed, StatusRefunded, StatusCancelled}
	RecurringFrequencies = []RecurringFrequency{Weekly, Monthly, Quarterly, Yearly}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func (t DonorType) Valid() bool          { return slices.Contains(DonorTypes, t) }
func (c CampaignCategory) Valid() bool   { return slices.Contains(CampaignCategories, c) }
func (s CampaignStatus) Valid() bool     { return slices.Contains(CampaignStatuses, s) }
func (c Currency) Valid() bool           { return slices.Contains(Currencies, c) }
func (m PaymentMethod) Valid() bool      { return slices.Contains(PaymentMethods, m) }
func (s PaymentStatus) Valid() bool      { return slices.Contains(PaymentStatuses, s) }
func (f RecurringFrequency) Valid() bool { return slices.Contains(RecurringFrequencies, f) }

// Normalize trims text fields, lower-cases the email and fills defaults.
func (d *Donor) Normalize() {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Notes = strings.TrimSpace(d.Notes)
	if d.DonorType == "" {
		d.DonorType = Individual
	}
	if strings.TrimSpace(d.Address.Country) == "" {
		d.Address.Country = DefaultCountry
	}
	d.Tags = normalizeTags(d.Tags)
}

func (d Donor) Validate() error {
	var errs ValidationErrors
	switch {
	case d.FirstName == "":
		errs.Add("firstName", "First name is required")
	case utf8.RuneCountInString(d.FirstName) > 50:
		errs.Add("firstName", "First name must be at most 50 characters")
	}
	switch {
	case d.LastName == "":
		errs.Add("lastName", "Last name is required")
	case utf8.RuneCountInString(d.LastName) > 50:
		errs.Add("lastName", "Last name must be at most 50 characters")
	}
	if !emailPattern.MatchString(d.Email) {
		errs.Add("email", "Valid email is required")
	}
	if !d.DonorType.Valid() {
		errs.Add("donorType", "Donor type must be one of individual, corporate, foundation")
	}
	if d.DateOfBirth != nil && d.DateOfBirth.After(time.Now()) {
		errs.Add("dateOfBirth", "Date of birth cannot be in the future")
	}
	if utf8.RuneCountInString(d.Notes) > 1000 {
		errs.Add("notes", "Notes must be at most 1000 characters")
	}
	return errs.Err()
}

// Normalize trims text fields and fills defaults.
func (c *Campaign) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.Image = strings.TrimSpace(c.Image)
	c.Notes = strings.TrimSpace(c.Notes)
	if c.Category == "" {
		c.Category = CategoryOther
	}
	if c.Status == "" {
		c.Status = CampaignDraft
	}
	c.Tags = normalizeTags(c.Tags)
}

func (c Campaign) Validate() error {
	var errs ValidationErrors
	switch {
	case utf8.RuneCountInString(c.Name) < 3:
		errs.Add("name", "Campaign name must be at least 3 characters")
	case utf8.RuneCountInString(c.Name) > 100:
		errs.Add("name", "Campaign name must be at most 100 characters")
	}
	switch {
	case utf8.RuneCountInString(c.Description) < 10:
		errs.Add("description", "Description must be at least 10 characters")
	case utf8.RuneCountInString(c.Description) > 2000:
		errs.Add("description", "Description must be at most 2000 characters")
	}
	switch {
	case c.Goal.Cents <= 0:
		errs.Add("goal", "Goal must be greater than 0")
	case c.Goal.Cents > MaxAmountCents:
		errs.Add("goal", "Goal must be at most "+Money{Cents: MaxAmountCents}.String())
	}
	if c.StartDate.IsZero() {
		errs.Add("startDate", "Start date is required")
	}
	if c.EndDate.IsZero() {
		errs.Add("endDate", "End date is required")
	} else if !c.StartDate.IsZero() && !c.EndDate.After(c.StartDate) {
		errs.Add("endDate", "End date must be after start date")
	}
	if !c.Category.Valid() {
		errs.Add("category", "Invalid campaign category")
	}
	if !c.Status.Valid() {
		errs.Add("status", "Invalid campaign status")
	}
	return errs.Err()
}

// Normalize trims text fields and fills defaults.
func (d *Donation) Normalize() {
	d.TransactionID = strings.TrimSpace(d.TransactionID)
	d.Message = strings.TrimSpace(d.Message)
	d.Notes = strings.TrimSpace(d.Notes)
	if d.Currency == "" {
		d.Currency = USD
	}
	d.Currency = Currency(strings.ToUpper(string(d.Currency)))
	if d.PaymentStatus == "" {
		d.PaymentStatus = StatusPending
	}
	if !d.IsRecurring {
		d.RecurringFrequency = ""
	}
	d.Tags = normalizeTags(d.Tags)
}

func (d Donation) Validate() error {
	var errs ValidationErrors
	if d.DonorID == "" {
		errs.Add("donor", "Donor is required")
	}
	if err := d.Amount.Validate(); err != nil {
		if d.Amount.Cents > 0 {
			errs.Add("amount", "Amount must be at most "+Money{Cents: MaxAmountCents}.String())
		} else {
			errs.Add("amount", "Amount must be greater than 0")
		}
	}
	if !d.Currency.Valid() {
		errs.Add("currency", "Currency must be one of USD, EUR, GBP, CAD, AUD")
	}
	if !d.PaymentMethod.Valid() {
		errs.Add("paymentMethod", "Invalid payment method")
	}
	if !d.PaymentStatus.Valid() {
		errs.Add("paymentStatus", "Invalid payment status")
	}
	if d.IsRecurring && !d.RecurringFrequency.Valid() {
		errs.Add("recurringFrequency", "Recurring frequency is required for recurring donations")
	}
	if utf8.RuneCountInString(d.Message) > 500 {
		errs.Add("message", "Message must be at most 500 characters")
	}
	return errs.Err()
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
