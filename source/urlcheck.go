package source

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Reserved ranges not covered by the net package predicates.
var (
	cgnat    *net.IPNet // 100.64.0.0/10
	v6unique *net.IPNet // fc00::/7
)

func init() {
	_, cgnat, _ = net.ParseCIDR("100.64.0.0/10")
	_, v6unique, _ = net.ParseCIDR("fc00::/7")
}

// ValidateRemoteURL rejects URLs that would make a fetch reach into the
// local network: localhost, private and reserved IP ranges, and internal
// domain suffixes. Intended for URLs supplied by an operator or a
// watched document, before they are handed to a Fetcher.
func ValidateRemoteURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("local host %q is not fetchable", host)
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return fmt.Errorf("address %s is in a private range", ip)
	}
	return nil
}

// IsPrivateIP reports whether an address is loopback, private, link-local
// or otherwise reserved, including IPv4 addresses mapped into IPv6.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return cgnat.Contains(ip) || v6unique.Contains(ip)
}
