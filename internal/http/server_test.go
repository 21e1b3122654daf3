package http

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"donations/internal/analytics"
	"donations/internal/core"
	"donations/internal/services"
	"donations/internal/storage/memory"
)

const testSecret = "test-secret"

type testAPI struct {
	t       *testing.T
	srv     *Server
	store   *memory.Store
	manager string
	user    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	auth := NewAuthenticator(testSecret, "donations-test")

	srv := NewServer(":0", Options{
		Donors:     services.NewDonorService(store, nil),
		Campaigns:  services.NewCampaignService(store, store, nil),
		Donations:  services.NewDonationService(store, services.NewTotalsMaintainer(store, nil), nil, nil),
		Analytics:  analytics.NewEngine(store, nil),
		Reconciler: services.NewReconciler(store, nil),
		Store:      store,
		Auth:       auth,

		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { srv.limiter.Stop() })

	manager, err := auth.Sign("manager-1", RoleManager, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	user, err := auth.Sign("user-1", "viewer", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return &testAPI{t: t, srv: srv, store: store, manager: manager, user: user}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func (a *testAPI) createDonor(email string) donorView {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/donors", a.manager, map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
	})
	expectStatus(a.t, rec, http.StatusCreated)
	return decode[donorView](a.t, rec)
}

func (a *testAPI) createCampaign() campaignView {
	a.t.Helper()
	now := time.Now().UTC()
	rec := a.do(http.MethodPost, "/api/campaigns", a.manager, map[string]any{
		"name":        "Clean Water",
		"description": "Wells for every village",
		"goal":        "1000.00",
		"startDate":   now.AddDate(0, 0, -1).Format(time.RFC3339),
		"endDate":     now.AddDate(0, 1, 0).Format(time.DateOnly),
		"status":      "active",
		"category":    "environment",
	})
	expectStatus(a.t, rec, http.StatusCreated)
	return decode[campaignView](a.t, rec)
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := api.do(http.MethodGet, path, "", nil)
		expectStatus(t, rec, http.StatusOK)
	}
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t)

	expectStatus(t, api.do(http.MethodGet, "/api/donors", "", nil), http.StatusUnauthorized)
	expectStatus(t, api.do(http.MethodGet, "/api/donors", "not-a-jwt", nil), http.StatusUnauthorized)

	other := NewAuthenticator("another-secret", "donations-test")
	forged, _ := other.Sign("x", RoleManager, time.Hour)
	expectStatus(t, api.do(http.MethodGet, "/api/donors", forged, nil), http.StatusUnauthorized)

	wrongIssuer := NewAuthenticator(testSecret, "someone-else")
	foreign, _ := wrongIssuer.Sign("x", RoleManager, time.Hour)
	expectStatus(t, api.do(http.MethodGet, "/api/donors", foreign, nil), http.StatusUnauthorized)

	expired, _ := api.srv.opts.Auth.Sign("x", RoleManager, -time.Minute)
	expectStatus(t, api.do(http.MethodGet, "/api/donors", expired, nil), http.StatusUnauthorized)

	expectStatus(t, api.do(http.MethodGet, "/api/donors", api.user, nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, "/api/donors", api.user, map[string]any{}), http.StatusForbidden)
	expectStatus(t, api.do(http.MethodPost, "/api/admin/reconcile", api.user, nil), http.StatusForbidden)
}

func TestDonorLifecycle(t *testing.T) {
	api := newTestAPI(t)

	d := api.createDonor("  ADA@Example.com ")
	if d.Email != "ada@example.com" || d.FullName != "Ada Lovelace" || !d.IsActive {
		t.Fatalf("created donor = %+v", d)
	}
	if d.Address.Country != core.DefaultCountry {
		t.Errorf("country = %q, want %q", d.Address.Country, core.DefaultCountry)
	}

	rec := api.do(http.MethodPost, "/api/donors", api.manager, map[string]any{
		"firstName": "Other", "lastName": "Person", "email": "ada@EXAMPLE.com",
	})
	expectStatus(t, rec, http.StatusConflict)

	rec = api.do(http.MethodPut, "/api/donors/"+d.ID, api.manager, map[string]any{"phone": "555-0100"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[donorView](t, rec); got.Phone != "555-0100" || got.FirstName != "Ada" {
		t.Errorf("updated donor = %+v", got)
	}

	rec = api.do(http.MethodDelete, "/api/donors/"+d.ID, api.manager, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(http.MethodGet, "/api/donors/"+d.ID, api.user, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[donorView](t, rec); got.IsActive {
		t.Error("deleted donor is still active")
	}

	expectStatus(t, api.do(http.MethodGet, "/api/donors/not-a-uuid", api.user, nil), http.StatusBadRequest)
	expectStatus(t, api.do(http.MethodGet, "/api/donors/"+core.NewID(), api.user, nil), http.StatusNotFound)
}

func TestDonorValidationListsEveryField(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/donors", api.manager, map[string]any{
		"email":       "not-an-email",
		"donorType":   "alien",
		"dateOfBirth": "last tuesday",
	})
	expectStatus(t, rec, http.StatusBadRequest)

	body := decode[struct {
		Errors []core.FieldError `json:"errors"`
	}](t, rec)
	got := map[string]bool{}
	for _, fe := range body.Errors {
		got[fe.Field] = true
	}
	for _, field := range []string{"dateOfBirth", "firstName", "lastName", "email", "donorType"} {
		if !got[field] {
			t.Errorf("missing error for %s in %+v", field, body.Errors)
		}
	}

	expectStatus(t, api.do(http.MethodPost, "/api/donors", api.manager, `{"firstName":`), http.StatusBadRequest)
}

func TestDonationCreationUpdatesTotals(t *testing.T) {
	api := newTestAPI(t)
	donor := api.createDonor("ada@example.com")
	campaign := api.createCampaign()

	if !campaign.IsActive || campaign.DaysRemaining < 28 || campaign.Organizer != "manager-1" {
		t.Errorf("campaign view = %+v", campaign)
	}

	rec := api.do(http.MethodPost, "/api/donations", api.manager, map[string]any{
		"donor":         donor.ID,
		"campaign":      campaign.ID,
		"amount":        25,
		"paymentMethod": "cash",
	})
	expectStatus(t, rec, http.StatusCreated)
	created := decode[core.Donation](t, rec)

	if created.PaymentStatus != core.StatusPending || created.Currency != core.USD {
		t.Errorf("defaults not applied: %+v", created)
	}
	if !regexp.MustCompile(`^TXN-\d+-[0-9A-F]{8}$`).MatchString(created.TransactionID) {
		t.Errorf("transaction id = %q", created.TransactionID)
	}
	if created.ProcessedBy != "manager-1" {
		t.Errorf("processedBy = %q", created.ProcessedBy)
	}

	gotDonor := decode[donorView](t, api.do(http.MethodGet, "/api/donors/"+donor.ID, api.user, nil))
	if gotDonor.TotalDonated.Cents != 2500 || gotDonor.LastDonationDate == nil {
		t.Errorf("donor totals = %v, %v", gotDonor.TotalDonated, gotDonor.LastDonationDate)
	}
	gotCampaign := decode[campaignView](t, api.do(http.MethodGet, "/api/campaigns/"+campaign.ID, api.user, nil))
	if gotCampaign.CurrentAmount.Cents != 2500 || math.Abs(gotCampaign.ProgressPercentage-2.5) > 1e-9 {
		t.Errorf("campaign totals = %v, %v%%", gotCampaign.CurrentAmount, gotCampaign.ProgressPercentage)
	}

	rec = api.do(http.MethodPut, "/api/donations/"+created.ID, api.manager, map[string]any{"paymentStatus": "completed"})
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, api.do(http.MethodDelete, "/api/donations/"+created.ID, api.manager, nil), http.StatusConflict)
	expectStatus(t, api.do(http.MethodDelete, "/api/campaigns/"+campaign.ID, api.manager, nil), http.StatusConflict)

	rec = api.do(http.MethodGet, "/api/donations?status=completed&donor="+donor.ID, api.user, nil)
	expectStatus(t, rec, http.StatusOK)
	page := decode[core.Page[core.Donation]](t, rec)
	if page.Pagination.TotalItems != 1 || len(page.Items) != 1 {
		t.Errorf("listing = %+v", page.Pagination)
	}

	rec = api.do(http.MethodPost, "/api/admin/reconcile", api.manager, nil)
	expectStatus(t, rec, http.StatusOK)
	if report := decode[core.ReconcileReport](t, rec); report.DonorsCorrected != 0 || report.CampaignsCorrected != 0 {
		t.Errorf("reconcile report = %+v", report)
	}
}

func TestDonationReferenceErrors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/donations", api.manager, map[string]any{
		"donor": core.NewID(), "amount": 10, "paymentMethod": "cash",
	})
	expectStatus(t, rec, http.StatusNotFound)

	rec = api.do(http.MethodPost, "/api/donations", api.manager, map[string]any{
		"donor": "bogus", "amount": 0, "paymentMethod": "barter",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), `"field":"donor"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListingValidationAndPagination(t *testing.T) {
	api := newTestAPI(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		api.createDonor(email)
	}

	rec := api.do(http.MethodGet, "/api/donors?page=2&limit=2", api.user, nil)
	expectStatus(t, rec, http.StatusOK)
	page := decode[core.Page[donorView]](t, rec)
	want := core.Pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 3, ItemsPerPage: 2}
	if page.Pagination != want || len(page.Items) != 1 {
		t.Errorf("pagination = %+v, items = %d", page.Pagination, len(page.Items))
	}

	rec = api.do(http.MethodGet, "/api/donors?page=9", api.user, nil)
	expectStatus(t, rec, http.StatusOK)
	if page := decode[core.Page[donorView]](t, rec); len(page.Items) != 0 || page.Items == nil {
		t.Errorf("beyond last page items = %v", page.Items)
	}

	expectStatus(t, api.do(http.MethodGet, "/api/donors?limit=500", api.user, nil), http.StatusBadRequest)
	expectStatus(t, api.do(http.MethodGet, "/api/donations?startDate=nope", api.user, nil), http.StatusBadRequest)
	expectStatus(t, api.do(http.MethodGet, "/api/campaigns?status=finished", api.user, nil), http.StatusBadRequest)
}

func TestCampaignRejectsInvertedDates(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/campaigns", api.manager, map[string]any{
		"name":        "Backwards",
		"description": "Ends before it starts",
		"goal":        100,
		"startDate":   "2024-06-01",
		"endDate":     "2024-05-01",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), `"field":"endDate"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	api := newTestAPI(t)
	donor := api.createDonor("ada@example.com")
	for _, amount := range []int{10, 30} {
		rec := api.do(http.MethodPost, "/api/donations", api.manager, map[string]any{
			"donor": donor.ID, "amount": amount, "paymentMethod": "paypal", "paymentStatus": "completed",
		})
		expectStatus(t, rec, http.StatusCreated)
	}

	rec := api.do(http.MethodGet, "/api/dashboard", api.user, nil)
	expectStatus(t, rec, http.StatusOK)
	dash := decode[core.Dashboard](t, rec)
	if dash.TotalDonations != 2 || dash.TotalAmount.Cents != 4000 || dash.ActiveDonors != 1 {
		t.Errorf("dashboard = %+v", dash)
	}

	rec = api.do(http.MethodGet, "/api/analytics/donations?donorType=individual", api.user, nil)
	expectStatus(t, rec, http.StatusOK)
	da := decode[core.DonationAnalytics](t, rec)
	if da.Summary.Count != 2 || da.Summary.AverageAmount.Cents != 2000 {
		t.Errorf("donation analytics summary = %+v", da.Summary)
	}

	for _, path := range []string{"/api/donations/stats", "/api/analytics/donors", "/api/analytics/campaigns"} {
		expectStatus(t, api.do(http.MethodGet, path, api.user, nil), http.StatusOK)
	}
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/nope", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}
