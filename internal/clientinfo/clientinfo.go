package clientinfo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/mssola/user_agent"
)

const (
	// LabelLocalhost is the geo label for loopback source addresses
	LabelLocalhost = "Localhost"
	// LabelUnknown is the fallback for any address that cannot be resolved
	LabelUnknown = "Unknown"
)

// Resolver is the reverse-lookup dependency, satisfied by *net.Resolver.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Deriver turns a raw source address and client-agent header into the
// best-effort enrichment fields of an audit record. Derivation never returns
// an error: lookup failures collapse into the "Unknown" sentinel so the
// attempt row can always be written.
type Deriver struct {
	resolver Resolver
	timeout  time.Duration
}

// NewDeriver creates a Deriver backed by the default DNS resolver.
func NewDeriver() *Deriver {
	return &Deriver{
		resolver: net.DefaultResolver,
		timeout:  time.Second,
	}
}

// NewDeriverWithResolver is used by tests to stub out DNS.
func NewDeriverWithResolver(resolver Resolver, timeout time.Duration) *Deriver {
	return &Deriver{resolver: resolver, timeout: timeout}
}

// GeoLabel derives a coarse location label for a source address by reverse
// lookup. Loopback addresses short-circuit to "Localhost"; anything that
// fails to parse or resolve yields "Unknown". The lookup is bounded by the
// deriver's timeout so a slow resolver cannot stall the login path.
func (d *Deriver) GeoLabel(ctx context.Context, addr string) string {
	if addr == "" {
		return LabelUnknown
	}
	if addr == "localhost" {
		return LabelLocalhost
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return LabelUnknown
	}
	if ip.IsLoopback() {
		return LabelLocalhost
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	names, err := d.resolver.LookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return LabelUnknown
	}

	return domainOf(names[0])
}

// domainOf reduces a reverse-DNS hostname to its registrable suffix,
// e.g. "host-12.isp.example.com." -> "example.com".
func domainOf(hostname string) string {
	hostname = strings.TrimSuffix(hostname, ".")
	parts := strings.Split(hostname, ".")
	if len(parts) < 2 {
		if hostname == "" {
			return LabelUnknown
		}
		return hostname
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// DescribeUserAgent reduces a raw User-Agent header to a short human-readable
// descriptor like "Chrome 120.0 on Linux x86_64".
func DescribeUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return LabelUnknown
	}

	ua := user_agent.New(raw)

	if ua.Bot() {
		return "Bot"
	}

	name, version := ua.Browser()
	if name == "" {
		return LabelUnknown
	}

	desc := name
	if version != "" {
		desc = fmt.Sprintf("%s %s", name, majorMinor(version))
	}
	if os := ua.OS(); os != "" {
		desc = fmt.Sprintf("%s on %s", desc, os)
	}

	return desc
}

// majorMinor trims a full browser version down to its first two components
func majorMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) <= 2 {
		return version
	}
	return strings.Join(parts[:2], ".")
}
