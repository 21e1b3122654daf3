package http

import (
	"net/http"
	"slices"

	"donations/internal/core"
)

// donorRequest is the body of donor create and update. Absent fields are
// left untouched on update.
type donorRequest struct {
	FirstName   *string         `json:"firstName"`
	LastName    *string         `json:"lastName"`
	Email       *string         `json:"email"`
	Phone       *string         `json:"phone"`
	Address     *core.Address   `json:"address"`
	DateOfBirth *string         `json:"dateOfBirth"`
	DonorType   *core.DonorType `json:"donorType"`
	IsAnonymous *bool           `json:"isAnonymous"`
	Tags        *[]string       `json:"tags"`
	Notes       *string         `json:"notes"`
	IsActive    *bool           `json:"isActive"`
}

func (req donorRequest) patch() (core.DonorPatch, core.ValidationErrors) {
	var errs core.ValidationErrors
	return core.DonorPatch{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: timeField(&errs, "dateOfBirth", req.DateOfBirth),
		DonorType:   req.DonorType,
		IsAnonymous: req.IsAnonymous,
		Tags:        req.Tags,
		Notes:       req.Notes,
		IsActive:    req.IsActive,
	}, errs
}

func (s *Server) handleListDonors(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	f := donorFilter(q)
	p := q.Page()
	if err := q.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.opts.Donors.List(r.Context(), f, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, viewPage(page, viewDonor))
}

func (s *Server) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Donors.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, viewDonor(d))
}

func (s *Server) handleCreateDonor(w http.ResponseWriter, r *http.Request) {
	var req donorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid JSON body").Write(w)
		return
	}
	p, perrs := req.patch()
	d := core.Donor{}.Apply(p)
	if len(perrs) > 0 {
		s.writeError(w, r, withParseErrors(perrs, d.Validate()))
		return
	}

	created, err := s.opts.Donors.Create(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeCreated(w, viewDonor(created))
}

func (s *Server) handleUpdateDonor(w http.ResponseWriter, r *http.Request) {
	var req donorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid JSON body").Write(w)
		return
	}
	p, perrs := req.patch()
	if len(perrs) > 0 {
		s.writeError(w, r, perrs)
		return
	}

	d, err := s.opts.Donors.Update(r.Context(), pathID(r), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, viewDonor(d))
}

// handleDeleteDonor deactivates the donor and returns the retained record.
func (s *Server) handleDeleteDonor(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Donors.Delete(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, struct {
		Message string    `json:"message"`
		Donor   donorView `json:"donor"`
	}{"Donor deactivated", viewDonor(d)})
}

// withParseErrors prepends body parse errors to the entity's own validation
// errors so a single response lists every problem. Fields that failed to
// parse are not reported twice.
func withParseErrors(parse core.ValidationErrors, validateErr error) error {
	verrs, _ := core.IsValidation(validateErr)
	out := parse
	for _, fe := range verrs {
		if !slices.ContainsFunc(parse, func(p core.FieldError) bool { return p.Field == fe.Field }) {
			out = append(out, fe)
		}
	}
	return out
}
