package gophone

import (
	"testing"
	"time"
)

func TestTimingsRefreshDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timings *Timings
		expiry  int
		want    time.Duration
	}{
		{"default expiry", nil, 60, 50 * time.Second},
		{"long expiry", nil, 3600, 3590 * time.Second},
		{"expiry below margin", nil, 5, 50 * time.Second},
		{"expiry equal to margin", nil, 10, 50 * time.Second},
		{"zero expiry", nil, 0, 50 * time.Second},
		{
			"custom margin",
			&Timings{RefreshMargin: 30 * time.Second},
			120,
			90 * time.Second,
		},
		{
			"custom default expiry",
			&Timings{DefaultExpiry: 2 * time.Minute},
			5,
			110 * time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.timings.refreshDelay(tt.expiry); got != tt.want {
				t.Errorf("refreshDelay(%d) = %v, want %v", tt.expiry, got, tt.want)
			}
		})
	}
}

func TestTimingsDefaults(t *testing.T) {
	t.Parallel()

	var zero *Timings
	if got := zero.watchdog(); got != DefaultWatchdogInterval {
		t.Errorf("watchdog() = %v, want %v", got, DefaultWatchdogInterval)
	}
	if got := zero.refreshMargin(); got != DefaultRefreshMargin {
		t.Errorf("refreshMargin() = %v, want %v", got, DefaultRefreshMargin)
	}
	if got := zero.defaultExpiry(); got != DefaultExpiry {
		t.Errorf("defaultExpiry() = %v, want %v", got, DefaultExpiry)
	}
}
