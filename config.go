package gophone

import (
	"log/slog"
	"strconv"

	"github.com/ghettovoice/gophone/stack"
)

// Media groups the media-path settings. They never require signaling
// work: changing them reconfigures the media layer directly.
type Media struct {
	// TURNEnabled switches relayed candidates on.
	TURNEnabled bool
	// TURNServer is the relay "host:port".
	TURNServer string
	// ICEEnabled switches candidate gathering on.
	ICEEnabled bool
}

// Config is the signaling account configuration supplied at open and
// reconfigure time.
type Config struct {
	// Username is the account user part and digest username.
	Username string
	// Password is the digest password.
	Password string
	// Domain is the registrar domain. Empty selects registrar-less mode:
	// no REGISTER traffic at all.
	Domain string
	// Secured selects TLS signaling transport.
	Secured bool
	// Expiry is the requested registration lifetime in seconds.
	// Zero selects the default.
	Expiry int
	// Media carries the media-path settings.
	Media Media
}

// Registrarless reports whether the config skips registration entirely.
func (c Config) Registrarless() bool { return c.Domain == "" }

func (c Config) credentials() stack.Credentials {
	return stack.Credentials{Username: c.Username, Password: c.Password}
}

func (c Config) expiry(t *Timings) int {
	if c.Expiry > 0 {
		return c.Expiry
	}
	return int(t.defaultExpiry().Seconds())
}

// LogValue implements [slog.LogValuer]. The password never reaches the log.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("domain", c.Domain),
		slog.Bool("secured", c.Secured),
		slog.Int("expiry", c.Expiry),
	)
}

// Reconfigure carries both parameter sets of a credential change job:
// the unregister leg runs against Old, the register leg against New.
type Reconfigure struct {
	Old Config
	New Config
}

// configChange classifies a reconfigure diff.
type configChange int

const (
	// configUnchanged means nothing differs.
	configUnchanged configChange = iota
	// configMediaOnly means only media-path settings differ.
	configMediaOnly
	// configSignaling means credentials or domain differ but the
	// transport stays, so no rebind is needed.
	configSignaling
	// configTransport means the signaling transport security differs
	// and the listening point must be rebound.
	configTransport
)

func (c configChange) String() string {
	switch c {
	case configUnchanged:
		return "unchanged"
	case configMediaOnly:
		return "media_only"
	case configSignaling:
		return "signaling"
	case configTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// classifyConfig diffs old against next and names the heaviest change.
func classifyConfig(old, next Config) configChange {
	switch {
	case old.Secured != next.Secured:
		return configTransport
	case old.Username != next.Username,
		old.Password != next.Password,
		old.Domain != next.Domain,
		old.Expiry != next.Expiry:
		return configSignaling
	case old.Media != next.Media:
		return configMediaOnly
	default:
		return configUnchanged
	}
}

// Params is a flat string parameter map, the external representation of
// a [Config]. An empty value is equivalent to an absent key.
type Params map[string]string

// Parameter keys.
const (
	ParamUsername    = "username"
	ParamPassword    = "password"
	ParamDomain      = "domain"
	ParamSecured     = "secured"
	ParamExpiry      = "expiry"
	ParamTURNEnabled = "media_turn_enabled"
	ParamTURNServer  = "media_turn_server"
	ParamICEEnabled  = "media_ice_enabled"
)

// ModifiedParams returns the delta that turns old into next: keys whose
// value changed carry the new value, keys removed carry an empty value.
func ModifiedParams(old, next Params) Params {
	mod := Params{}
	for k, v := range next {
		if v != "" && old[k] != v {
			mod[k] = v
		}
	}
	for k, v := range old {
		if v != "" && next[k] == "" {
			mod[k] = ""
		}
	}
	return mod
}

// MergeParams applies a delta produced by [ModifiedParams] onto old.
// MergeParams(old, ModifiedParams(old, next)) reproduces next for any
// two maps free of empty values.
func MergeParams(old, mod Params) Params {
	out := Params{}
	for k, v := range old {
		if v != "" {
			out[k] = v
		}
	}
	for k, v := range mod {
		if v == "" {
			delete(out, k)
		} else {
			out[k] = v
		}
	}
	return out
}

// ConfigFromParams builds a typed [Config] from its flat representation.
// Unknown keys are ignored, malformed numeric values fall back to zero.
func ConfigFromParams(p Params) Config {
	expiry, _ := strconv.Atoi(p[ParamExpiry])
	return Config{
		Username: p[ParamUsername],
		Password: p[ParamPassword],
		Domain:   p[ParamDomain],
		Secured:  p[ParamSecured] == "true",
		Expiry:   expiry,
		Media: Media{
			TURNEnabled: p[ParamTURNEnabled] == "true",
			TURNServer:  p[ParamTURNServer],
			ICEEnabled:  p[ParamICEEnabled] == "true",
		},
	}
}

// ParamsFromConfig is the inverse of [ConfigFromParams].
func ParamsFromConfig(c Config) Params {
	p := Params{}
	set := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	set(ParamUsername, c.Username)
	set(ParamPassword, c.Password)
	set(ParamDomain, c.Domain)
	if c.Secured {
		p[ParamSecured] = "true"
	}
	if c.Expiry > 0 {
		p[ParamExpiry] = strconv.Itoa(c.Expiry)
	}
	if c.Media.TURNEnabled {
		p[ParamTURNEnabled] = "true"
	}
	set(ParamTURNServer, c.Media.TURNServer)
	if c.Media.ICEEnabled {
		p[ParamICEEnabled] = "true"
	}
	return p
}
