package services

import (
	"context"
	"fmt"
	"time"

	"donations/internal/core"
	"donations/internal/log"
	"donations/internal/ports"
)

// CampaignService manages fundraising campaigns.
type CampaignService struct {
	campaigns ports.CampaignRepository
	donations ports.DonationRepository
	logger    *log.Logger
	now       func() time.Time
}

func NewCampaignService(campaigns ports.CampaignRepository, donations ports.DonationRepository, logger *log.Logger) *CampaignService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CampaignService{
		campaigns: campaigns,
		donations: donations,
		logger:    logger.WithComponent(log.ComponentCampaign),
		now:       time.Now,
	}
}

// Create stores a campaign organized by actor. The raised amount always starts at zero.
func (s *CampaignService) Create(ctx context.Context, actor string, c core.Campaign) (core.Campaign, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Campaign{}, err
	}

	now := s.now().UTC()
	c.ID = core.NewID()
	c.Organizer = actor
	c.CurrentAmount = core.Money{}
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.campaigns.CreateCampaign(ctx, c); err != nil {
		return core.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	s.logger.InfoContext(ctx, "Campaign created",
		log.FieldCampaignID, c.ID, log.FieldActor, actor, log.FieldOperation, log.OpCreate)
	return c, nil
}

func (s *CampaignService) Get(ctx context.Context, id string) (core.Campaign, error) {
	if !core.ValidID(id) {
		return core.Campaign{}, core.ErrInvalidCampaignID
	}
	c, err := s.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return core.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *CampaignService) Update(ctx context.Context, id string, p core.CampaignPatch) (core.Campaign, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return core.Campaign{}, err
	}
	next := cur.Apply(p)
	if err := next.Validate(); err != nil {
		return core.Campaign{}, err
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.campaigns.UpdateCampaign(ctx, next); err != nil {
		return core.Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	s.logger.InfoContext(ctx, "Campaign updated", log.FieldCampaignID, id, log.FieldOperation, log.OpUpdate)
	return s.Get(ctx, id)
}

// Delete removes a campaign that no donation references.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.donations.CountDonationsByCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("count campaign donations: %w", err)
	}
	if n > 0 {
		return core.ErrCampaignHasDonations
	}
	if err := s.campaigns.DeleteCampaign(ctx, id); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	s.logger.InfoContext(ctx, "Campaign deleted", log.FieldCampaignID, id, log.FieldOperation, log.OpDelete)
	return nil
}

func (s *CampaignService) List(ctx context.Context, f core.CampaignFilter, p core.PageRequest) (core.Page[core.Campaign], error) {
	if err := p.Validate(); err != nil {
		return core.Page[core.Campaign]{}, err
	}
	items, total, err := s.campaigns.ListCampaigns(ctx, f, p)
	if err != nil {
		return core.Page[core.Campaign]{}, fmt.Errorf("list campaigns: %w", err)
	}
	return core.NewPage(items, p, total), nil
}
