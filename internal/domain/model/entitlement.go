package model

import (
	"math"
	"time"
)

type Urgency string

const (
	UrgencySafe     Urgency = "safe"
	UrgencyWarning  Urgency = "warning"
	UrgencyDanger   Urgency = "danger"
	UrgencyCritical Urgency = "critical"
)

// ClassifyUrgency buckets whole days left until renewal.
func ClassifyUrgency(daysRemaining int) Urgency {
	switch {
	case daysRemaining > 30:
		return UrgencySafe
	case daysRemaining >= 8:
		return UrgencyWarning
	case daysRemaining >= 4:
		return UrgencyDanger
	default:
		return UrgencyCritical
	}
}

// DaysRemaining is ceil((expiresAt - now) / 24h); negative once past expiry.
func DaysRemaining(expiresAt, now time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

// Entitlement is the read-side answer to "may this user use the app, and how soon must they renew".
type Entitlement struct {
	Entitled      bool
	Admin         bool
	Governing     *Subscription // nil for admins without a live subscription
	DaysRemaining int
	Urgency       Urgency
}
