package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Analytics.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, d)
}

// handleDonationAnalytics accepts startDate, endDate, campaign and donorType.
func (s *Server) handleDonationAnalytics(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	f := donationFilter(q)
	if err := q.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.opts.Analytics.DonationAnalytics(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, a)
}

func (s *Server) handleDonorAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.opts.Analytics.DonorAnalytics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, a)
}

func (s *Server) handleCampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.opts.Analytics.CampaignAnalytics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, a)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Reconciler.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, report)
}
