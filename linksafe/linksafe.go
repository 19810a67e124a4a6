// Package linksafe guards outbound HTTP requests made on behalf of users:
// URL safety validation (SSRF prevention) and bounded response reads.
//
// ValidateURL is a pure predicate with no caching. Callers re-invoke it for
// every redirect hop, because DNS answers are not stable and redirect targets
// are attacker-influenced.
package linksafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxURLLength is the longest raw URL accepted for validation.
const MaxURLLength = 2048

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("linksafe: only http and https schemes are allowed")

// ErrNoHost is returned when a URL has no hostname.
var ErrNoHost = errors.New("linksafe: URL has no host")

// ErrCredentials is returned when a URL embeds user:pass credentials.
var ErrCredentials = errors.New("linksafe: URLs with embedded credentials are not allowed")

// ErrUnresolvable is returned when the hostname does not resolve.
var ErrUnresolvable = errors.New("linksafe: hostname does not resolve")

// ErrDisallowedRange is returned when any resolved address falls in a
// reserved (private, loopback, link-local, multicast, ...) range.
var ErrDisallowedRange = errors.New("linksafe: URL targets a reserved address range")

// ErrResponseTooLarge is returned by LimitedReadAll when the body exceeds
// the configured cap.
var ErrResponseTooLarge = errors.New("linksafe: response body too large")

// ValidateURL checks that rawURL is safe for the server to fetch on a user's
// behalf: http/https scheme, a hostname, no embedded credentials, and every
// resolved address outside reserved ranges. A hostname that fails DNS
// resolution is rejected (ErrUnresolvable) rather than waved through: an
// unresolvable target cannot be fetched anyway, and treating it as safe would
// let split-horizon names slip past the gate.
func ValidateURL(rawURL string) error {
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("linksafe: URL too long (%d chars, max %d)", len(rawURL), MaxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("linksafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.User != nil {
		return ErrCredentials
	}
	host := u.Hostname()
	if host == "" {
		return ErrNoHost
	}

	// Literal IP: no DNS round trip needed.
	if ip := net.ParseIP(host); ip != nil {
		if isReservedIP(ip) {
			return fmt.Errorf("%w: %s", ErrDisallowedRange, ip)
		}
		return nil
	}

	addrs, err := net.LookupIP(host)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvable, host)
	}
	// Every address must be public. One internal A record is enough to
	// make the whole name off-limits: the dialer could pick any of them.
	for _, ip := range addrs {
		if isReservedIP(ip) {
			return fmt.Errorf("%w: %s resolves to %s", ErrDisallowedRange, host, ip)
		}
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r. Returns ErrResponseTooLarge
// if the limit is exceeded, never a silently truncated buffer.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (cap %d bytes)", ErrResponseTooLarge, maxBytes)
	}
	return data, nil
}

// reservedNets covers ranges that must never be reached from a user-supplied
// URL: RFC 1918, loopback, link-local, CGNAT, documentation, benchmarking,
// multicast, and their IPv6 counterparts. Parsed once at init.
var reservedNets []*net.IPNet

func init() {
	cidrs := []string{
		"0.0.0.0/8",          // "this network"
		"10.0.0.0/8",         // RFC 1918
		"100.64.0.0/10",      // CGNAT
		"127.0.0.0/8",        // loopback
		"169.254.0.0/16",     // link-local
		"172.16.0.0/12",      // RFC 1918
		"192.0.0.0/24",       // IETF protocol assignments
		"192.0.2.0/24",       // TEST-NET-1
		"192.168.0.0/16",     // RFC 1918
		"198.18.0.0/15",      // benchmarking
		"198.51.100.0/24",    // TEST-NET-2
		"203.0.113.0/24",     // TEST-NET-3
		"224.0.0.0/4",        // multicast
		"240.0.0.0/4",        // reserved
		"::/128",             // unspecified
		"::1/128",            // loopback
		"fc00::/7",           // unique-local
		"fe80::/10",          // link-local
		"ff00::/8",           // multicast
		"2001:db8::/32",      // documentation
		"64:ff9b:1::/48",     // local-use NAT64
	}
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("linksafe: bad builtin CIDR " + c)
		}
		reservedNets = append(reservedNets, n)
	}
}

func isReservedIP(ip net.IP) bool {
	// IPv4-mapped IPv6 (::ffff:10.0.0.1) is checked as IPv4.
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	if ip.IsUnspecified() || ip.IsLoopback() {
		return true
	}
	for _, n := range reservedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
