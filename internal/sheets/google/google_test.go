package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"donations/internal/core"
	"donations/internal/log"
	ports "donations/internal/sheets"

	goption "google.golang.org/api/option"
)

// fakeSheets emulates the subset of the Sheets v4 REST API the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	sheets  []string
	headers map[string][]any
	rows    map[string][][]any
	gets    int
}

func newFakeSheets(existing ...string) *fakeSheets {
	return &fakeSheets{sheets: existing, headers: map[string][]any{}, rows: map[string][][]any{}}
}

func sheetOf(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	return strings.ReplaceAll(strings.Trim(name, "'"), "''", "'")
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sheet-id")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "":
		f.gets++
		type props struct {
			Title string `json:"title"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		var out struct {
			Sheets []sheet `json:"sheets"`
		}
		for _, s := range f.sheets {
			out.Sheets = append(out.Sheets, sheet{props{s}})
		}
		_ = json.NewEncoder(w).Encode(out)

	case r.Method == http.MethodPost && path == ":batchUpdate":
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.sheets = append(f.sheets, rq.AddSheet.Properties.Title)
		}
		fmt.Fprint(w, `{}`)

	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		var body struct {
			Values [][]any `json:"values"`
		}
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
			if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
				http.Error(w, "missing valueInputOption", http.StatusBadRequest)
				return
			}
			name := sheetOf(strings.TrimSuffix(rng, ":append"))
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.rows[name] = append(f.rows[name], body.Values...)
			fmt.Fprintf(w, `{"updates":{"updatedRange":"'%s'!A%d:H%d"}}`, name, len(f.rows[name])+1, len(f.rows[name])+1)
		case r.Method == http.MethodPut:
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.headers[sheetOf(rng)] = body.Values[0]
			fmt.Fprint(w, `{}`)
		case r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"values": f.rows[sheetOf(rng)]})
		}

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"}, log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func row(txn string, year int) ports.LedgerRow {
	return ports.LedgerRow{
		TransactionID: txn,
		Date:          time.Date(year, 5, 1, 0, 0, 0, 0, time.UTC),
		Donor:         "Ada Lovelace",
		Amount:        core.Money{Cents: 1000},
		Currency:      core.USD,
		PaymentMethod: core.Cash,
		PaymentStatus: core.StatusPending,
	}
}

func TestAppendCreatesYearSheetWithHeader(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.AppendDonation(ctx, row("TXN-1", 2024))
	if err != nil {
		t.Fatalf("AppendDonation: %v", err)
	}
	if ref != "'2024 Donations'!A2:H2" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := c.AppendDonation(ctx, row("TXN-2", 2024)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	if len(fake.sheets) != 1 || fake.sheets[0] != "2024 Donations" {
		t.Errorf("sheets = %v", fake.sheets)
	}
	if got := fake.headers["2024 Donations"]; len(got) != len(ports.Header) || got[0] != "Transaction ID" {
		t.Errorf("header = %v", got)
	}
	if fake.gets != 1 {
		t.Errorf("spreadsheet metadata read %d times, want 1", fake.gets)
	}

	ids, err := c.TransactionIDs(ctx, 2024)
	if err != nil {
		t.Fatalf("TransactionIDs: %v", err)
	}
	if strings.Join(ids, ",") != "TXN-1,TXN-2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestTransactionIDsMissingSheet(t *testing.T) {
	c := newTestClient(t, newFakeSheets("2023 Donations"))
	ids, err := c.TransactionIDs(context.Background(), 2025)
	if err != nil || len(ids) != 0 {
		t.Errorf("TransactionIDs() = %v, %v", ids, err)
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("err = %v", err)
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("err = %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("err = %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Donations", "2024 Donations"},
		{"2023 Donations", "2023 Donations"},
		{"  Ledger ", "2024 Ledger"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2024); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestFirstColumn(t *testing.T) {
	got := firstColumn([][]any{{"TXN-1", "x"}, {}, {" "}, {"TXN-2"}, {"TXN-1"}})
	if strings.Join(got, ",") != "TXN-1,TXN-2" {
		t.Errorf("firstColumn() = %v", got)
	}
	if a1("Bob's 2024", "A:H") != "'Bob''s 2024'!A:H" {
		t.Errorf("a1 quoting = %q", a1("Bob's 2024", "A:H"))
	}
}
