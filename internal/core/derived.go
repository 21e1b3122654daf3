package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh entity identifier.
func NewID() string { return uuid.NewString() }

// ValidID reports whether s is a well-formed entity identifier.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewTransactionID builds the human-readable transaction identifier assigned to
// donations created without one: TXN-<unix millis>-<8 uppercase hex>.
func NewTransactionID(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TXN-%d-%s", at.UnixMilli(), suffix)
}

func (d Donor) FullName() string {
	return d.FirstName + " " + d.LastName
}

// ProgressPercentage is current/goal as a percentage capped at 100, 0 for a zero goal.
func ProgressPercentage(current, goal Money) float64 {
	if goal.Cents <= 0 {
		return 0
	}
	p := float64(current.Cents) / float64(goal.Cents) * 100
	return math.Min(math.Max(p, 0), 100)
}

func (c Campaign) ProgressPercentage() float64 {
	return ProgressPercentage(c.CurrentAmount, c.Goal)
}

// DaysRemaining is the number of started days until EndDate, never negative.
func (c Campaign) DaysRemaining(now time.Time) int {
	left := c.EndDate.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// IsActiveAt reports whether the campaign is active and now lies within its window.
func (c Campaign) IsActiveAt(now time.Time) bool {
	return c.Status == CampaignActive && !now.Before(c.StartDate) && !now.After(c.EndDate)
}
