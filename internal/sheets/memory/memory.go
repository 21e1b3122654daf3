package memory

import (
	"context"
	"fmt"
	"sync"

	"donations/internal/sheets"
)

// Ledger keeps exported rows in memory.
type Ledger struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
}

var _ sheets.Ledger = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{}
}

// AppendDonation stores the row and returns a synthetic row reference.
func (l *Ledger) AppendDonation(_ context.Context, row sheets.LedgerRow) (string, error) {
	if row.TransactionID == "" {
		return "", fmt.Errorf("ledger row has no transaction id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, row)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

func (l *Ledger) TransactionIDs(_ context.Context, year int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for _, r := range l.rows {
		if r.Date.Year() == year {
			ids = append(ids, r.TransactionID)
		}
	}
	return ids, nil
}

// Rows returns a copy of every stored row.
func (l *Ledger) Rows() []sheets.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerRow(nil), l.rows...)
}
