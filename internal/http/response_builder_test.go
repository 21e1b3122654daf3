package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"donations/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestWriteErrorMapping(t *testing.T) {
	var verrs core.ValidationErrors
	verrs.Add("email", "Email is required")

	tests := []struct {
		name        string
		production  bool
		err         error
		wantStatus  int
		wantMessage string
		wantDetail  bool
	}{
		{"validation", false, verrs, http.StatusBadRequest, "Validation failed", false},
		{"invalid id", false, core.ErrInvalidDonorID, http.StatusBadRequest, "Invalid donor ID", false},
		{"not found wrapped", false, fmt.Errorf("get donor: %w", core.ErrDonorNotFound), http.StatusNotFound, "Donor not found", false},
		{"conflict", false, core.ErrDuplicateEmail, http.StatusConflict, "A donor with this email already exists", false},
		{"internal with detail", false, errors.New("disk full"), http.StatusInternalServerError, "Internal server error", true},
		{"internal in production", true, errors.New("disk full"), http.StatusInternalServerError, "Internal server error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{opts: Options{Production: tt.production}}
			w := httptest.NewRecorder()
			s.writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body struct {
				Message string            `json:"message"`
				Detail  string            `json:"detail"`
				Errors  []core.FieldError `json:"errors"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMessage)
			}
			if (body.Detail != "") != tt.wantDetail {
				t.Errorf("detail = %q, wantDetail %v", body.Detail, tt.wantDetail)
			}
			if tt.name == "validation" && (len(body.Errors) != 1 || body.Errors[0].Field != "email") {
				t.Errorf("errors = %+v", body.Errors)
			}
		})
	}
}
