package expiry

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Status is the outcome of checking an expiration date against a threshold.
// DaysRemaining is negative once the domain has expired.
type Status struct {
	DaysRemaining int  `json:"days_remaining"`
	ExpiringSoon  bool `json:"expiring_soon"`
	Expired       bool `json:"expired"`
}

// Evaluate reports whole days left until expires (rounded down) and whether
// that is below threshold.
func Evaluate(expires, now time.Time, threshold int) Status {
	days := int(math.Floor(float64(expires.Sub(now)) / float64(day)))
	return Status{
		DaysRemaining: days,
		ExpiringSoon:  days < threshold,
		Expired:       days < 0,
	}
}
