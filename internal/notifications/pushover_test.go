package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hostpulse/internal/config"
)

func TestAuthorizationStates(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.PushoverConfig
		want AuthorizationState
	}{
		{"no credentials", config.PushoverConfig{}, AuthNotDetermined},
		{"credentials but disabled", config.PushoverConfig{APIToken: "t", UserKey: "u"}, AuthDenied},
		{"enabled with credentials", config.PushoverConfig{Enabled: true, APIToken: "t", UserKey: "u"}, AuthAuthorized},
		{"enabled missing user key", config.PushoverConfig{Enabled: true, APIToken: "t"}, AuthNotDetermined},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewPushoverClient(&tc.cfg)
			require.Equal(t, tc.want, client.Authorization())
		})
	}
}

func TestThrottlerPerTargetLimit(t *testing.T) {
	throttler := NewThrottler(&config.ThrottleConfig{
		Enabled:      true,
		Window:       time.Hour,
		MaxPerTarget: 2,
		MaxTotal:     100,
	})

	require.True(t, throttler.Allow("a"))
	require.True(t, throttler.Allow("a"))
	require.False(t, throttler.Allow("a"), "third send for the same target is throttled")
	require.True(t, throttler.Allow("b"), "other targets are unaffected")
}

func TestThrottlerTotalLimit(t *testing.T) {
	throttler := NewThrottler(&config.ThrottleConfig{
		Enabled:      true,
		Window:       time.Hour,
		MaxPerTarget: 100,
		MaxTotal:     3,
	})

	require.True(t, throttler.Allow("a"))
	require.True(t, throttler.Allow("b"))
	require.True(t, throttler.Allow("c"))
	require.False(t, throttler.Allow("d"))
}

func TestThrottlerWindowExpiry(t *testing.T) {
	throttler := NewThrottler(&config.ThrottleConfig{
		Enabled:      true,
		Window:       50 * time.Millisecond,
		MaxPerTarget: 1,
		MaxTotal:     1,
	})

	require.True(t, throttler.Allow("a"))
	require.False(t, throttler.Allow("a"))

	time.Sleep(60 * time.Millisecond)
	require.True(t, throttler.Allow("a"), "counts outside the window no longer apply")
}
