package gophone

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestModifiedMergeRoundTrip(t *testing.T) {
	t.Parallel()

	// Merging the delta back onto old must reproduce next exactly.
	tests := []struct {
		name string
		old  Params
		next Params
	}{
		{
			name: "disjoint",
			old:  Params{"username": "bob"},
			next: Params{"domain": "example.com"},
		},
		{
			name: "value change",
			old:  Params{"username": "bob", "domain": "example.com"},
			next: Params{"username": "alice", "domain": "example.com"},
		},
		{
			name: "removal",
			old:  Params{"username": "bob", "domain": "example.com"},
			next: Params{"username": "bob"},
		},
		{
			name: "empty old",
			old:  Params{},
			next: Params{"username": "bob", "secured": "true"},
		},
		{
			name: "empty next",
			old:  Params{"username": "bob"},
			next: Params{},
		},
		{
			name: "identical",
			old:  Params{"username": "bob", "expiry": "60"},
			next: Params{"username": "bob", "expiry": "60"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MergeParams(tt.old, ModifiedParams(tt.old, tt.next))
			if diff := cmp.Diff(tt.next, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestModifiedParamsIdentical(t *testing.T) {
	t.Parallel()

	p := Params{"username": "bob", "domain": "example.com"}
	if got := ModifiedParams(p, p); len(got) != 0 {
		t.Errorf("ModifiedParams(p, p) = %v, want empty", got)
	}
}

func TestClassifyConfig(t *testing.T) {
	t.Parallel()

	base := Config{Username: "bob", Password: "pw", Domain: "example.com", Expiry: 60}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   configChange
	}{
		{"identical", func(*Config) {}, configUnchanged},
		{"turn toggled", func(c *Config) { c.Media.TURNEnabled = true }, configMediaOnly},
		{"ice toggled", func(c *Config) { c.Media.ICEEnabled = true }, configMediaOnly},
		{"username", func(c *Config) { c.Username = "alice" }, configSignaling},
		{"password", func(c *Config) { c.Password = "pw2" }, configSignaling},
		{"domain", func(c *Config) { c.Domain = "other.com" }, configSignaling},
		{"expiry", func(c *Config) { c.Expiry = 120 }, configSignaling},
		{"secured", func(c *Config) { c.Secured = true }, configTransport},
		{"secured wins over signaling", func(c *Config) { c.Secured = true; c.Username = "alice" }, configTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := base
			tt.mutate(&next)
			if got := classifyConfig(base, next); got != tt.want {
				t.Errorf("classifyConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigParamsRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Username: "bob",
		Password: "pw",
		Domain:   "example.com",
		Secured:  true,
		Expiry:   90,
		Media:    Media{TURNEnabled: true, TURNServer: "turn.example.com:3478"},
	}
	got := ConfigFromParams(ParamsFromConfig(cfg))
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config round trip mismatch (-want +got):\n%s", diff)
	}
}
