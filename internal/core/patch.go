package core

import "time"

// Patches carry only the fields a client supplied. Derived totals and the
// transaction id have no patch field and cannot be written through an update.
type (
	DonorPatch struct {
		FirstName   *string
		LastName    *string
		Email       *string
		Phone       *string
		Address     *Address
		DateOfBirth *time.Time
		DonorType   *DonorType
		IsAnonymous *bool
		Tags        *[]string
		Notes       *string
		IsActive    *bool
	}

	CampaignPatch struct {
		Name        *string
		Description *string
		Goal        *Money
		StartDate   *time.Time
		EndDate     *time.Time
		Category    *CampaignCategory
		Status      *CampaignStatus
		Image       *string
		Tags        *[]string
		IsFeatured  *bool
		IsPublic    *bool
		Notes       *string
	}

	DonationPatch struct {
		Amount             *Money
		Currency           *Currency
		PaymentMethod      *PaymentMethod
		PaymentStatus      *PaymentStatus
		IsAnonymous        *bool
		IsRecurring        *bool
		RecurringFrequency *RecurringFrequency
		Message            *string
		Notes              *string
		ReceiptSent        *bool
		Tags               *[]string
	}
)

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Apply returns a copy of d with the patch applied and normalized.
func (d Donor) Apply(p DonorPatch) Donor {
	set(&d.FirstName, p.FirstName)
	set(&d.LastName, p.LastName)
	set(&d.Email, p.Email)
	set(&d.Phone, p.Phone)
	set(&d.Address, p.Address)
	set(&d.DonorType, p.DonorType)
	set(&d.IsAnonymous, p.IsAnonymous)
	set(&d.Tags, p.Tags)
	set(&d.Notes, p.Notes)
	set(&d.IsActive, p.IsActive)
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		d.DateOfBirth = &dob
	}
	d.Normalize()
	return d
}

// Apply returns a copy of c with the patch applied and normalized.
func (c Campaign) Apply(p CampaignPatch) Campaign {
	set(&c.Name, p.Name)
	set(&c.Description, p.Description)
	set(&c.Goal, p.Goal)
	set(&c.StartDate, p.StartDate)
	set(&c.EndDate, p.EndDate)
	set(&c.Category, p.Category)
	set(&c.Status, p.Status)
	set(&c.Image, p.Image)
	set(&c.Tags, p.Tags)
	set(&c.IsFeatured, p.IsFeatured)
	set(&c.IsPublic, p.IsPublic)
	set(&c.Notes, p.Notes)
	c.Normalize()
	return c
}

// Apply returns a copy of d with the patch applied and normalized. Marking the
// receipt as sent stamps ReceiptSentAt with now when it was unset.
func (d Donation) Apply(p DonationPatch, now time.Time) Donation {
	set(&d.Amount, p.Amount)
	set(&d.Currency, p.Currency)
	set(&d.PaymentMethod, p.PaymentMethod)
	set(&d.PaymentStatus, p.PaymentStatus)
	set(&d.IsAnonymous, p.IsAnonymous)
	set(&d.IsRecurring, p.IsRecurring)
	set(&d.RecurringFrequency, p.RecurringFrequency)
	set(&d.Message, p.Message)
	set(&d.Notes, p.Notes)
	set(&d.ReceiptSent, p.ReceiptSent)
	set(&d.Tags, p.Tags)
	if d.ReceiptSent && d.ReceiptSentAt == nil {
		at := now
		d.ReceiptSentAt = &at
	}
	d.Normalize()
	return d
}
