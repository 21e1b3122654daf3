// Package sheets defines the donation ledger port and its row format.
package sheets

import (
	"context"
	"time"

	"donations/internal/core"
)

// AnonymousDonor replaces the donor name of anonymous gifts in the ledger.
const AnonymousDonor = "Anonymous"

// Header is the first row of every ledger sheet.
var Header = []any{"Transaction ID", "Date", "Donor", "Campaign", "Amount", "Currency", "Payment Method", "Status"}

// LedgerRow is one exported donation.
type LedgerRow struct {
	TransactionID string
	Date          time.Time
	Donor         string
	Campaign      string
	Amount        core.Money
	Currency      core.Currency
	PaymentMethod core.PaymentMethod
	PaymentStatus core.PaymentStatus
}

// NewLedgerRow builds the row for d. campaign may be nil.
func NewLedgerRow(d core.Donation, donor core.Donor, campaign *core.Campaign) LedgerRow {
	row := LedgerRow{
		TransactionID: d.TransactionID,
		Date:          d.CreatedAt.UTC(),
		Donor:         donor.FullName(),
		Amount:        d.Amount,
		Currency:      d.Currency,
		PaymentMethod: d.PaymentMethod,
		PaymentStatus: d.PaymentStatus,
	}
	if d.IsAnonymous || donor.IsAnonymous {
		row.Donor = AnonymousDonor
	}
	if campaign != nil {
		row.Campaign = campaign.Name
	}
	return row
}

// Values renders the row in Header order.
func (r LedgerRow) Values() []any {
	return []any{
		r.TransactionID,
		r.Date.Format(time.DateOnly),
		r.Donor,
		r.Campaign,
		r.Amount.String(),
		string(r.Currency),
		string(r.PaymentMethod),
		string(r.PaymentStatus),
	}
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendDonation(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}

	// LedgerReader lists the transaction ids already exported for a year.
	LedgerReader interface {
		TransactionIDs(ctx context.Context, year int) ([]string, error)
	}

	Ledger interface {
		LedgerWriter
		LedgerReader
	}
)
