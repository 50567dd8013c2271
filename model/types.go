// Package model defines the core data structures for alist-cli.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WatchRecord is one watched title from the diary feed or entered by hand.
type WatchRecord struct {
	ID                     string   `json:"id"`
	Title                  string   `json:"title"`
	WatchDate              Date     `json:"watchDate"`
	SourceID               string   `json:"sourceId,omitempty"`
	CountsTowardMembership bool     `json:"countsTowardMembership"`
	Rating                 *float64 `json:"rating,omitempty"`
	AddedManually          bool     `json:"addedManually"`
	Notes                  string   `json:"notes,omitempty"`

	// Feed-provided details, refreshed on every sync.
	Link     string `json:"link,omitempty"`
	FilmYear int    `json:"filmYear,omitempty"`
	Rewatch  bool   `json:"rewatch,omitempty"`
	TMDBID   string `json:"tmdbId,omitempty"`
}

// NewManualRecord builds a record for a watch entered outside the feed.
// An empty id gets a generated one.
func NewManualRecord(id, title string, watchDate Date) WatchRecord {
	if id == "" {
		id = "manual-" + uuid.New().String()
	}
	return WatchRecord{
		ID:            id,
		Title:         strings.TrimSpace(title),
		WatchDate:     watchDate,
		AddedManually: true,
	}
}

// Validate checks if the record has required fields.
func (r *WatchRecord) Validate() error {
	if r.ID == "" {
		return errors.New("record ID is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("record title is required")
	}
	if r.WatchDate.IsZero() {
		return errors.New("record watch date is required")
	}
	if r.Rating != nil && !ValidRating(*r.Rating) {
		return fmt.Errorf("rating %v out of range (0-5)", *r.Rating)
	}
	return nil
}

// ValidRating reports whether v is a usable star rating.
func ValidRating(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 5
}

// CountFlagged returns how many records count toward the membership.
func CountFlagged(records []WatchRecord) int {
	n := 0
	for _, r := range records {
		if r.CountsTowardMembership {
			n++
		}
	}
	return n
}

// MembershipSettings describes the subscription being evaluated.
type MembershipSettings struct {
	SubscriptionCost decimal.Decimal `json:"subscriptionCost"`
	StartDate        *Date           `json:"startDate"`
	AvgTicketPrice   decimal.Decimal `json:"avgTicketPrice"`
	IsActive         bool            `json:"isActive"`
}

// Validate rejects negative amounts.
func (m *MembershipSettings) Validate() error {
	if m.SubscriptionCost.IsNegative() {
		return errors.New("subscription cost must not be negative")
	}
	if m.AvgTicketPrice.IsNegative() {
		return errors.New("average ticket price must not be negative")
	}
	return nil
}

// LetterboxdSettings holds the diary feed account.
type LetterboxdSettings struct {
	Username string     `json:"username"`
	LastSync *time.Time `json:"lastSync"`
}

// Preferences are display options.
type Preferences struct {
	DefaultView   Scope  `json:"defaultView"`
	Currency      string `json:"currency"`
	Notifications bool   `json:"notifications"`
}

// Settings is the persisted settings document.
type Settings struct {
	Letterboxd  LetterboxdSettings `json:"letterboxd"`
	AList       MembershipSettings `json:"aList"`
	Preferences Preferences        `json:"preferences"`
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		AList: MembershipSettings{
			SubscriptionCost: decimal.RequireFromString("23.95"),
			AvgTicketPrice:   decimal.RequireFromString("15.00"),
			IsActive:         true,
		},
		Preferences: Preferences{
			DefaultView:   ScopeLifetime,
			Currency:      "$",
			Notifications: true,
		},
	}
}

// Validate checks the settings document.
func (s *Settings) Validate() error {
	if err := s.AList.Validate(); err != nil {
		return err
	}
	if s.Letterboxd.Username != "" && strings.ContainsAny(s.Letterboxd.Username, "/ ?#") {
		return fmt.Errorf("invalid username %q", s.Letterboxd.Username)
	}
	return nil
}

// PeriodBreakdown is the savings picture for one scope. It is always derived,
// never stored.
type PeriodBreakdown struct {
	Savings      decimal.Decimal `json:"savings"`
	ActiveMonths int             `json:"activeMonths"`
	TripCount    int             `json:"tripCount"`
	TicketValue  decimal.Decimal `json:"ticketValue"`
}

// Stats aggregates the three scopes with derived metrics.
type Stats struct {
	Lifetime           PeriodBreakdown `json:"lifetime"`
	Monthly            PeriodBreakdown `json:"monthly"`
	Yearly             PeriodBreakdown `json:"yearly"`
	AvgSavingsPerMovie decimal.Decimal `json:"avgSavingsPerMovie"`
	TotalFlaggedMovies int             `json:"totalFlaggedMovies"`
	WeeklyFreeUsed     int             `json:"weeklyFreeUsed"`
	MonthlyFreeUsed    int             `json:"monthlyFreeUsed"`
	UtilizationRate    float64         `json:"utilizationRate"`
	// BreakEvenMonths is nil when break-even cannot be projected.
	BreakEvenMonths *int `json:"breakEvenMonths"`
}

// Breakdown returns the breakdown for scope.
func (s *Stats) Breakdown(scope Scope) PeriodBreakdown {
	switch scope {
	case ScopeYear:
		return s.Yearly
	case ScopeMonth:
		return s.Monthly
	default:
		return s.Lifetime
	}
}
