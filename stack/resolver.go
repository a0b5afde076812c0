package stack

import (
	"cmp"
	"context"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"braces.dev/errtrace"
	"github.com/miekg/dns"

	"github.com/ghettovoice/gophone/internal/errorutil"
)

// Resolver locates the registrar server for a SIP domain following the
// RFC 3263 procedure: NAPTR to pick the transport service, SRV for the
// host and port, plain A/AAAA as the last resort.
type Resolver struct {
	net.Resolver

	// NameServer specifies the DNS server address (e.g., "8.8.8.8:53").
	// If empty, the system's default resolver configuration is used.
	NameServer string
	// Timeout specifies the timeout for DNS queries.
	// If zero, defaults to 5 seconds.
	Timeout time.Duration
}

// NAPTR represents a NAPTR DNS record as defined in RFC 3403.
type NAPTR struct {
	Order      uint16
	Preference uint16
	// Flags control interpretation, "s" points at an SRV record.
	Flags string
	// Service is "SIP+D2U" (UDP), "SIP+D2T" (TCP) or "SIPS+D2T" (TLS).
	Service string
	Regexp  string
	// Replacement is the next domain name to query.
	Replacement string
}

// ResolveRegistrar resolves the registration domain to a concrete
// "host:port" target for the chosen transport. A failure at every
// fallback level wraps [ErrResolve].
func (r *Resolver) ResolveRegistrar(ctx context.Context, domain string, secured bool) (string, error) {
	host := domain
	if _, _, err := net.SplitHostPort(domain); err == nil {
		// explicit port wins, no discovery needed
		return domain, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return net.JoinHostPort(host, strconv.Itoa(defaultPort(secured))), nil
	}

	service, proto := "sip", "udp"
	if secured {
		service, proto = "sips", "tcp"
	}

	if srvHost, srvPort, err := r.lookupViaNAPTR(ctx, host, secured); err == nil {
		return net.JoinHostPort(srvHost, strconv.Itoa(srvPort)), nil
	}

	if srvs, err := r.lookupSRV(ctx, service, proto, host); err == nil && len(srvs) > 0 {
		return net.JoinHostPort(
			strings.TrimSuffix(srvs[0].Target, "."),
			strconv.Itoa(int(srvs[0].Port)),
		), nil
	}

	ips, err := r.Resolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		return "", errtrace.Wrap(errorutil.NewWrapperError(ErrResolve, err))
	}
	return net.JoinHostPort(ips[0].String(), strconv.Itoa(defaultPort(secured))), nil
}

func defaultPort(secured bool) int {
	if secured {
		return 5061
	}
	return 5060
}

func (r *Resolver) lookupViaNAPTR(ctx context.Context, host string, secured bool) (string, int, error) {
	recs, err := r.LookupNAPTR(ctx, host)
	if err != nil {
		return "", 0, errtrace.Wrap(err)
	}

	want := "SIP+D2U"
	if secured {
		want = "SIPS+D2T"
	}
	for _, rec := range recs {
		if !strings.EqualFold(rec.Service, want) || !strings.EqualFold(rec.Flags, "s") {
			continue
		}
		name := strings.TrimSuffix(rec.Replacement, ".")
		_, srvs, err := r.Resolver.LookupSRV(ctx, "", "", name)
		if err != nil || len(srvs) == 0 {
			continue
		}
		return strings.TrimSuffix(srvs[0].Target, "."), int(srvs[0].Port), nil
	}
	return "", 0, errtrace.Wrap(ErrResolve)
}

func (r *Resolver) lookupSRV(ctx context.Context, service, proto, host string) ([]*net.SRV, error) {
	_, srvs, err := r.Resolver.LookupSRV(ctx, service, proto, host)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	slices.SortFunc(srvs, func(a, b *net.SRV) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(b.Weight, a.Weight)
	})
	return srvs, nil
}

// LookupNAPTR queries NAPTR records for the given host.
// Returns records sorted by Order (ascending), then by Preference (ascending).
func (r *Resolver) LookupNAPTR(ctx context.Context, host string) ([]*NAPTR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeNAPTR)
	m.RecursionDesired = true

	nameserver, err := r.nameserver()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	client := &dns.Client{Timeout: r.timeout()}
	resp, _, err := client.ExchangeContext(ctx, m, nameserver)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, errtrace.Wrap(&net.DNSError{
			Err:        dns.RcodeToString[resp.Rcode],
			Name:       host,
			IsNotFound: resp.Rcode == dns.RcodeNameError,
		})
	}

	recs := make([]*NAPTR, 0, len(resp.Answer))
	for _, ans := range resp.Answer {
		if rr, ok := ans.(*dns.NAPTR); ok {
			recs = append(recs, &NAPTR{
				Order:       rr.Order,
				Preference:  rr.Preference,
				Flags:       rr.Flags,
				Service:     rr.Service,
				Regexp:      rr.Regexp,
				Replacement: rr.Replacement,
			})
		}
	}

	// Sort by Order, then by Preference (RFC 3403)
	slices.SortFunc(recs, func(a, b *NAPTR) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Preference, b.Preference)
	})

	return recs, nil
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 5 * time.Second
}

func (r *Resolver) nameserver() (string, error) {
	if r.NameServer != "" {
		if _, _, err := net.SplitHostPort(r.NameServer); err != nil {
			return net.JoinHostPort(r.NameServer, "53"), nil //nolint:nilerr
		}
		return r.NameServer, nil
	}

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	if len(conf.Servers) == 0 {
		return "", errtrace.Wrap(&net.DNSError{
			Err:  "no DNS servers configured",
			Name: "resolv.conf",
		})
	}

	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}
