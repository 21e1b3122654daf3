package core

import (
	"math"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is a 1-indexed page of Limit items.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Validate() error {
	var errs ValidationErrors
	if p.Page < 1 {
		errs.Add("page", "Page must be a positive integer")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		errs.Add("limit", "Limit must be between 1 and 100")
	}
	return errs.Err()
}

// Offset is the number of items before the page. It saturates at math.MaxInt
// instead of overflowing for absurd page numbers.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

func NewPagination(req PageRequest, total int) Pagination {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return Pagination{
		CurrentPage:  req.Page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: req.Limit,
	}
}

// Page is one slice of a filtered listing. Items is never nil.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: NewPagination(req, total)}
}

// DonorFilter selects donors; Search matches first name, last name or email
// case-insensitively.
type DonorFilter struct {
	DonorType DonorType
	IsActive  *bool
	Search    string
}

type CampaignFilter struct {
	Status     CampaignStatus
	Category   CampaignCategory
	IsFeatured *bool
	IsPublic   *bool
}

// DonationFilter selects donations. From and To bound CreatedAt inclusively.
// DonorType requires resolving the owning donor.
type DonationFilter struct {
	Status     PaymentStatus
	CampaignID string
	DonorID    string
	DonorType  DonorType
	From       *time.Time
	To         *time.Time
}

// InRange reports whether t lies within the filter's inclusive date bounds.
func (f DonationFilter) InRange(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}
