package models

import "time"

type SubscriptionTier string

const (
	SubscriptionStarter  SubscriptionTier = "starter"
	SubscriptionPro      SubscriptionTier = "pro"
	SubscriptionBusiness SubscriptionTier = "business"
)

// ParseSubscriptionTier maps a raw string onto the fixed tier set.
func ParseSubscriptionTier(s string) (SubscriptionTier, bool) {
	switch SubscriptionTier(s) {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return SubscriptionTier(s), true
	}
	return "", false
}

// User is the single persisted account entity. SessionToken holds the
// currently active bearer token, nil when logged out. VerificationToken
// is set at creation and cleared exactly once, when verification succeeds.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Subscription      SubscriptionTier
	SessionToken      *string
	AvatarURL         string
	Verified          bool
	VerificationToken *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
