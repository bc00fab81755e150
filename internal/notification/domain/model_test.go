package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliverable(t *testing.T) {
	now := time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		n    Notification
		want bool
	}{
		{name: "fresh pending", n: Notification{Status: StatusPending, CreatedAt: now}, want: false},
		{name: "stale pending", n: Notification{Status: StatusPending, CreatedAt: now.Add(-5 * time.Minute)}, want: true},
		{name: "stale pending under lease", n: Notification{Status: StatusPending, CreatedAt: now.Add(-5 * time.Minute), NextAttemptAt: &future}, want: false},
		{name: "failed retry due", n: Notification{Status: StatusFailed, Attempts: 1, NextAttemptAt: &past}, want: true},
		{name: "failed waiting", n: Notification{Status: StatusFailed, Attempts: 1, NextAttemptAt: &future}, want: false},
		{name: "failed exhausted", n: Notification{Status: StatusFailed, Attempts: 5}, want: false},
		{name: "sent", n: Notification{Status: StatusSent}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.n.Deliverable(now, 2*time.Minute, 5))
		})
	}
}
