package tracking

import (
	"context"
	"time"
)

// Session is one bookable slot window within a center, as returned by the
// availability API.
type Session struct {
	Date              string   `json:"date"`
	AvailableCapacity float64  `json:"available_capacity"`
	MinAgeLimit       int      `json:"min_age_limit"`
	Vaccine           string   `json:"vaccine"`
	Slots             []string `json:"slots"`
}

// Center is one vaccination center with its sessions. Records are transient:
// fetched, evaluated and discarded on every tick.
type Center struct {
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Pincode  int       `json:"pincode"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	FeeType  string    `json:"fee_type"`
	Sessions []Session `json:"sessions"`
}

// FetchMode selects the availability endpoint variant.
type FetchMode int

const (
	// ModeAuthenticated queries the authenticated endpoint.
	ModeAuthenticated FetchMode = iota
	// ModePublic queries the public (unauthenticated, CDN-cached) endpoint.
	ModePublic
)

// Fetcher queries the remote availability source for one pincode and date.
// Date is formatted dd-mm-yyyy.
type Fetcher interface {
	Fetch(ctx context.Context, pincode, date string, mode FetchMode) ([]Center, error)
}

// Notifier delivers a text message to a user. silent suppresses the
// client-side alert sound but still delivers the message.
type Notifier interface {
	Send(ctx context.Context, userID int64, text string, silent bool) error
}

// Registration describes one user's tracking request.
type Registration struct {
	UserID      int64
	DisplayName string
	PostalCodes []string
	Interval    time.Duration
}

// DefaultInterval is used when a registration variant does not ask for an
// interval (one-step /track) or the dialogue has not set one yet.
const DefaultInterval = 300 * time.Second

// MinInterval is the caller-facing floor for polling intervals.
const MinInterval = 10 * time.Second
