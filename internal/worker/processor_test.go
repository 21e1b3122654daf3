package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"donations/internal/amqp"
	"donations/internal/core"
	"donations/internal/services"
	"donations/internal/sheets"
	ledgermem "donations/internal/sheets/memory"
	"donations/internal/storage/memory"
)

var created = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	if err := store.CreateDonor(ctx, core.Donor{ID: "donor-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org", IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateCampaign(ctx, core.Campaign{ID: "camp-1", Name: "Library", Goal: core.Money{Cents: 100000}}); err != nil {
		t.Fatal(err)
	}
	donations := []core.Donation{
		{ID: "don-1", DonorID: "donor-1", CampaignID: "camp-1", Amount: core.Money{Cents: 2500}, Currency: core.USD,
			PaymentMethod: core.Cash, PaymentStatus: core.StatusCompleted, TransactionID: "TXN-1", CreatedAt: created},
		{ID: "don-2", DonorID: "donor-1", Amount: core.Money{Cents: 1000}, Currency: core.USD,
			PaymentMethod: core.Cash, PaymentStatus: core.StatusPending, TransactionID: "TXN-2", IsAnonymous: true, CreatedAt: created},
	}
	for _, d := range donations {
		if err := store.CreateDonation(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestHandleDonationCreated(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	ledger := ledgermem.New()
	p := NewProcessor(store, ledger, services.NewReconciler(store, nil), nil)

	if err := p.Handle(ctx, amqp.NewDonationCreated("don-1")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := p.Handle(ctx, amqp.NewDonationCreated("don-2")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	rows := ledger.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TransactionID != "TXN-1" || rows[0].Donor != "Ada Lovelace" || rows[0].Campaign != "Library" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Donor != sheets.AnonymousDonor || rows[1].Campaign != "" {
		t.Errorf("unexpected anonymous row %+v", rows[1])
	}
}

func TestHandleDonationCreated_Redelivery(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	ledger := ledgermem.New()
	p := NewProcessor(store, ledger, nil, nil)

	for i := 0; i < 3; i++ {
		if err := p.HandleDonationCreated(ctx, "don-1"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if n := len(ledger.Rows()); n != 1 {
		t.Errorf("redelivered message appended %d rows, want 1", n)
	}
}

func TestHandleDonationCreated_Skips(t *testing.T) {
	ctx := context.Background()
	store := seed(t)

	t.Run("no ledger", func(t *testing.T) {
		p := NewProcessor(store, nil, nil, nil)
		if err := p.HandleDonationCreated(ctx, "don-1"); err != nil {
			t.Errorf("expected skip, got %v", err)
		}
	})

	t.Run("deleted donation", func(t *testing.T) {
		ledger := ledgermem.New()
		p := NewProcessor(store, ledger, nil, nil)
		if err := p.HandleDonationCreated(ctx, "missing"); err != nil {
			t.Errorf("expected skip, got %v", err)
		}
		if len(ledger.Rows()) != 0 {
			t.Error("nothing should be appended")
		}
	})
}

type brokenLedger struct{ ledgermem.Ledger }

func (*brokenLedger) TransactionIDs(context.Context, int) ([]string, error) {
	return nil, errors.New("quota exceeded")
}

func TestHandleDonationCreated_LedgerError(t *testing.T) {
	p := NewProcessor(seed(t), &brokenLedger{}, nil, nil)
	if err := p.HandleDonationCreated(context.Background(), "don-1"); err == nil {
		t.Error("expected ledger error so the message is retried")
	}
}

func TestHandleReconcile(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	p := NewProcessor(store, nil, services.NewReconciler(store, nil), nil)

	if err := p.Handle(ctx, amqp.NewReconcileRequest()); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	donor, _ := store.GetDonor(ctx, "donor-1")
	if donor.TotalDonated.Cents != 3500 {
		t.Errorf("donor total = %d, want 3500", donor.TotalDonated.Cents)
	}
	campaign, _ := store.GetCampaign(ctx, "camp-1")
	if campaign.CurrentAmount.Cents != 2500 {
		t.Errorf("campaign amount = %d, want 2500", campaign.CurrentAmount.Cents)
	}

	report, err := p.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.DonorsCorrected != 0 || report.CampaignsCorrected != 0 {
		t.Errorf("second pass should be clean, got %+v", report)
	}
}

func TestHandle_UnknownType(t *testing.T) {
	p := NewProcessor(seed(t), nil, nil, nil)
	if err := p.Handle(context.Background(), &amqp.Message{Type: "expense.sync"}); err == nil {
		t.Error("expected error for unknown type")
	}
}
