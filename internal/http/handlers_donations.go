package http

import (
	"net/http"
	"time"

	"donations/internal/core"
)

// donationRequest is the body of donation create and update. The donor,
// campaign and transactionId are only read on create.
type donationRequest struct {
	Donor              *string                  `json:"donor"`
	Campaign           *string                  `json:"campaign"`
	TransactionID      *string                  `json:"transactionId"`
	Amount             *core.Money              `json:"amount"`
	Currency           *core.Currency           `json:"currency"`
	PaymentMethod      *core.PaymentMethod      `json:"paymentMethod"`
	PaymentStatus      *core.PaymentStatus      `json:"paymentStatus"`
	IsAnonymous        *bool                    `json:"isAnonymous"`
	IsRecurring        *bool                    `json:"isRecurring"`
	RecurringFrequency *core.RecurringFrequency `json:"recurringFrequency"`
	Message            *string                  `json:"message"`
	Notes              *string                  `json:"notes"`
	ReceiptSent        *bool                    `json:"receiptSent"`
	Tags               *[]string                `json:"tags"`
}

func (req donationRequest) patch() core.DonationPatch {
	return core.DonationPatch{
		Amount:             req.Amount,
		Currency:           req.Currency,
		PaymentMethod:      req.PaymentMethod,
		PaymentStatus:      req.PaymentStatus,
		IsAnonymous:        req.IsAnonymous,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
		Message:            req.Message,
		Notes:              req.Notes,
		ReceiptSent:        req.ReceiptSent,
		Tags:               req.Tags,
	}
}

func (req donationRequest) donation() core.Donation {
	var d core.Donation
	if req.Donor != nil {
		d.DonorID = *req.Donor
	}
	if req.Campaign != nil {
		d.CampaignID = *req.Campaign
	}
	if req.TransactionID != nil {
		d.TransactionID = *req.TransactionID
	}
	return d.Apply(req.patch(), time.Now().UTC())
}

func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	f := donationFilter(q)
	p := q.Page()
	if err := q.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.opts.Donations.List(r.Context(), f, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, page)
}

func (s *Server) handleGetDonation(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Donations.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, d)
}

func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid JSON body").Write(w)
		return
	}

	created, err := s.opts.Donations.Create(r.Context(), actorID(r), req.donation())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeCreated(w, created)
}

func (s *Server) handleUpdateDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid JSON body").Write(w)
		return
	}

	d, err := s.opts.Donations.Update(r.Context(), pathID(r), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, d)
}

func (s *Server) handleDeleteDonation(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Donations.Delete(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, messageBody{Message: "Donation deleted"})
}

func (s *Server) handleDonationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.opts.Analytics.DonationStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, stats)
}
