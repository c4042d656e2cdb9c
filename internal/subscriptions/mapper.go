package subscriptions

import (
	"strings"
	"time"

	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
)

// MapProviderStatus translates a Stripe subscription status. Only "active" is
// trusted for sync; the rest are reported for logging and event-specific handlers.
func MapProviderStatus(status string) (enums.SubscriptionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return enums.SubscriptionStatusActive, true
	case "trialing":
		return enums.SubscriptionStatusTrial, true
	case "past_due", "unpaid":
		return enums.SubscriptionStatusPastDue, true
	case "paused":
		return enums.SubscriptionStatusSuspended, true
	case "canceled", "incomplete_expired":
		return enums.SubscriptionStatusCancelled, true
	}
	return "", false
}

func trimmedPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// UnixToTime converts provider timestamps; zero means unknown.
func UnixToTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
