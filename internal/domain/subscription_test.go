package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSubscriptionStatus(t *testing.T) {
	tests := []struct {
		from   SubscriptionStatus
		action SubscriptionAction
		want   SubscriptionStatus
		ok     bool
	}{
		{SubscriptionActive, ActionPause, SubscriptionPaused, true},
		{SubscriptionPaused, ActionResume, SubscriptionActive, true},
		{SubscriptionActive, ActionCancel, SubscriptionCancelled, true},
		{SubscriptionPaused, ActionCancel, SubscriptionCancelled, true},
		{SubscriptionActive, ActionResume, "", false},
		{SubscriptionPaused, ActionPause, "", false},
		{SubscriptionCancelled, ActionResume, "", false},
		{SubscriptionCancelled, ActionCancel, "", false},
		{SubscriptionExpired, ActionPause, "", false},
	}
	for _, tt := range tests {
		got, ok := NextSubscriptionStatus(tt.from, tt.action)
		assert.Equal(t, tt.ok, ok, "%s -> %s", tt.from, tt.action)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.action)
	}
}
