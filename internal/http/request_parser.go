package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"donations/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadBody marks a request body that could not be decoded.
var errBadBody = errors.New("malformed request body")

// decodeJSON reads a single JSON object into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps or YYYY-MM-DD dates (UTC midnight).
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

// timeField parses an optional date body field, recording a field error on
// malformed input.
func timeField(errs *core.ValidationErrors, field string, raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t, err := parseTime(*raw)
	if err != nil {
		errs.Add(field, "Must be a valid date (YYYY-MM-DD or RFC 3339)")
		return nil
	}
	return &t
}

// QueryParser reads typed query parameters and collects every malformed one.
type QueryParser struct {
	values url.Values
	errs   core.ValidationErrors
}

func NewQueryParser(r *http.Request) *QueryParser {
	return &QueryParser{values: r.URL.Query()}
}

func (q *QueryParser) String(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

// Page reads page and limit with their defaults and bounds.
func (q *QueryParser) Page() core.PageRequest {
	p := core.PageRequest{
		Page:  q.int("page", core.DefaultPage, "Page must be a positive integer"),
		Limit: q.int("limit", core.DefaultLimit, "Limit must be between 1 and 100"),
	}
	if verrs, ok := core.IsValidation(p.Validate()); ok {
		q.errs = append(q.errs, verrs...)
	}
	return p
}

func (q *QueryParser) int(name string, def int, message string) int {
	raw := q.String(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.errs.Add(name, message)
		return def
	}
	return n
}

// Bool reads "true" or "false"; absent yields nil.
func (q *QueryParser) Bool(name string) *bool {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.errs.Add(name, "Must be true or false")
		return nil
	}
	return &b
}

// ID reads an optional identifier parameter.
func (q *QueryParser) ID(name string) string {
	raw := q.String(name)
	if raw != "" && !core.ValidID(raw) {
		q.errs.Add(name, "Must be a valid identifier")
		return ""
	}
	return raw
}

// Time reads an optional date or timestamp parameter.
func (q *QueryParser) Time(name string) *time.Time {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	t, err := parseTime(raw)
	if err != nil {
		q.errs.Add(name, "Must be a valid date (YYYY-MM-DD or RFC 3339)")
		return nil
	}
	return &t
}

// Err returns the collected validation errors, or nil.
func (q *QueryParser) Err() error {
	return q.errs.Err()
}

// enumParam reads an optional enum parameter.
func enumParam[T ~string](q *QueryParser, name string, valid func(T) bool, allowed []T) T {
	raw := T(q.String(name))
	if raw == "" {
		return ""
	}
	if !valid(raw) {
		q.errs.Add(name, "Must be one of: "+joinEnum(allowed))
		return ""
	}
	return raw
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// donorFilter parses the donor listing filters.
func donorFilter(q *QueryParser) core.DonorFilter {
	return core.DonorFilter{
		DonorType: enumParam(q, "donorType", core.DonorType.Valid, core.DonorTypes),
		IsActive:  q.Bool("isActive"),
		Search:    q.String("search"),
	}
}

func campaignFilter(q *QueryParser) core.CampaignFilter {
	return core.CampaignFilter{
		Status:     enumParam(q, "status", core.CampaignStatus.Valid, core.CampaignStatuses),
		Category:   enumParam(q, "category", core.CampaignCategory.Valid, core.CampaignCategories),
		IsFeatured: q.Bool("isFeatured"),
		IsPublic:   q.Bool("isPublic"),
	}
}

// donationFilter parses donation filters; startDate and endDate bound
// createdAt inclusively.
func donationFilter(q *QueryParser) core.DonationFilter {
	f := core.DonationFilter{
		Status:     enumParam(q, "status", core.PaymentStatus.Valid, core.PaymentStatuses),
		CampaignID: q.ID("campaign"),
		DonorID:    q.ID("donor"),
		DonorType:  enumParam(q, "donorType", core.DonorType.Valid, core.DonorTypes),
		From:       q.Time("startDate"),
		To:         q.Time("endDate"),
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		q.errs.Add("endDate", "End date must not be before start date")
	}
	return f
}
