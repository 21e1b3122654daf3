package http

import (
	"net/http"
	"time"

	"donations/internal/core"
)

type campaignRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Goal        *core.Money            `json:"goal"`
	StartDate   *string                `json:"startDate"`
	EndDate     *string                `json:"endDate"`
	Category    *core.CampaignCategory `json:"category"`
	Status      *core.CampaignStatus   `json:"status"`
	Image       *string                `json:"image"`
	Tags        *[]string              `json:"tags"`
	IsFeatured  *bool                  `json:"isFeatured"`
	IsPublic    *bool                  `json:"isPublic"`
	Notes       *string                `json:"notes"`
}

func (req campaignRequest) patch() (core.CampaignPatch, core.ValidationErrors) {
	var errs core.ValidationErrors
	return core.CampaignPatch{
		Name:        req.Name,
		Description: req.Description,
		Goal:        req.Goal,
		StartDate:   timeField(&errs, "startDate", req.StartDate),
		EndDate:     timeField(&errs, "endDate", req.EndDate),
		Category:    req.Category,
		Status:      req.Status,
		Image:       req.Image,
		Tags:        req.Tags,
		IsFeatured:  req.IsFeatured,
		IsPublic:    req.IsPublic,
		Notes:       req.Notes,
	}, errs
}

func (s *Server) presentCampaign(c core.Campaign) campaignView {
	return viewCampaign(c, time.Now())
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	f := campaignFilter(q)
	p := q.Page()
	if err := q.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.opts.Campaigns.List(r.Context(), f, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, viewPage(page, s.presentCampaign))
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.opts.Campaigns.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, s.presentCampaign(c))
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid JSON body").Write(w)
		return
	}
	p, perrs := req.patch()
	c := core.Campaign{}.Apply(p)
	if len(perrs) > 0 {
		s.writeError(w, r, withParseErrors(perrs, c.Validate()))
		return
	}

	created, err := s.opts.Campaigns.Create(r.Context(), actorID(r), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeCreated(w, s.presentCampaign(created))
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid JSON body").Write(w)
		return
	}
	p, perrs := req.patch()
	if len(perrs) > 0 {
		s.writeError(w, r, perrs)
		return
	}

	c, err := s.opts.Campaigns.Update(r.Context(), pathID(r), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, s.presentCampaign(c))
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Campaigns.Delete(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, messageBody{Message: "Campaign deleted"})
}
