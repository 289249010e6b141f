package cda

import (
	"fmt"
	"strings"
)

// Mode selects how device state is kept fresh. It is resolved once at startup.
type Mode int

const (
	ModePolling Mode = iota
	ModePushSubscription
	ModePushWebhook
)

func (m Mode) String() string {
	switch m {
	case ModePolling:
		return "polling"
	case ModePushSubscription:
		return "subscription"
	case ModePushWebhook:
		return "webhook"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Push reports whether state arrives by events, suppressing characteristic polling.
func (m Mode) Push() bool {
	return m == ModePushSubscription || m == ModePushWebhook
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "polling", "poll":
		return ModePolling, nil
	case "subscription", "push_subscription":
		return ModePushSubscription, nil
	case "webhook", "push_webhook":
		return ModePushWebhook, nil
	default:
		return ModePolling, fmt.Errorf("%w: unknown mode %q", ErrConfiguration, s)
	}
}
