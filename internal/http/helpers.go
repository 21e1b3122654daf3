package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"donations/internal/core"
)

// pathID returns the {id} route parameter.
func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// actorID is the subject of the verified token, recorded as organizer or
// processedBy.
func actorID(r *http.Request) string {
	if a, ok := ActorFrom(r.Context()); ok {
		return a.ID
	}
	return ""
}

// donorView adds the computed full name.
type donorView struct {
	core.Donor
	FullName string `json:"fullName"`
}

func viewDonor(d core.Donor) donorView {
	return donorView{Donor: d, FullName: d.FullName()}
}

// campaignView adds the values derived from the campaign and the clock.
type campaignView struct {
	core.Campaign
	ProgressPercentage float64 `json:"progressPercentage"`
	DaysRemaining      int     `json:"daysRemaining"`
	IsActive           bool    `json:"isActive"`
}

func viewCampaign(c core.Campaign, now time.Time) campaignView {
	return campaignView{
		Campaign:           c,
		ProgressPercentage: c.ProgressPercentage(),
		DaysRemaining:      c.DaysRemaining(now),
		IsActive:           c.IsActiveAt(now),
	}
}

// viewPage maps the items of a page, keeping its pagination.
func viewPage[T, V any](p core.Page[T], view func(T) V) core.Page[V] {
	items := make([]V, len(p.Items))
	for i, it := range p.Items {
		items[i] = view(it)
	}
	return core.Page[V]{Items: items, Pagination: p.Pagination}
}

func writeOK(w http.ResponseWriter, v any) {
	NewJSONResponse().JSON(v).Write(w)
}

func writeCreated(w http.ResponseWriter, v any) {
	NewJSONResponse().Status(http.StatusCreated).JSON(v).Write(w)
}
