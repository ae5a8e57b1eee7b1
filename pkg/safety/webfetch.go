// Package safety implements the defense-in-depth checks shared by the
// dispatcher and the runner: the web_fetch SSRF denylist and the ssh
// read-only command allowlist. Both sides run the same checks so a
// dispatch that slips past one layer is still caught by the other.
package safety

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// deniedHostSuffixes blocks well-known non-routable or metadata hostnames
// outright, independent of DNS/IP resolution.
var deniedHostSuffixes = []string{
	"localhost",
	".local",
	".internal",
	"metadata.google.internal",
}

// CheckWebFetchURL reports whether rawURL is safe to fetch: http/https
// scheme, a host that isn't a denied literal, and (when the host is a
// literal IP) not in a private/loopback/link-local range. Returns a
// human-readable cause on denial, matching the blocked-result wording the
// runner surfaces back to chat.
func CheckWebFetchURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL blocked by web fetch safety policy: unparseable url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL blocked by web fetch safety policy: scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("URL blocked by web fetch safety policy: missing host")
	}

	lower := strings.ToLower(host)
	for _, suffix := range deniedHostSuffixes {
		if lower == suffix || strings.HasSuffix(lower, suffix) {
			return fmt.Errorf("URL blocked by web fetch safety policy")
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if isDeniedIP(ip) {
			return fmt.Errorf("URL blocked by web fetch safety policy")
		}
	}

	return nil
}

// isDeniedIP reports whether ip falls in a private, loopback, link-local,
// or unique-local range, per the closed list of ranges in the data model:
// 10/8, 127/8, 0/8, 169.254/16, 172.16/12, 192.168/16 for IPv4; loopback,
// link-local, and unique-local for IPv6.
func isDeniedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		switch {
		case v4[0] == 10:
			return true
		case v4[0] == 127:
			return true
		case v4[0] == 0:
			return true
		case v4[0] == 169 && v4[1] == 254:
			return true
		case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31:
			return true
		case v4[0] == 192 && v4[1] == 168:
			return true
		}
		return false
	}
	// IPv6 unique local addresses, fc00::/7.
	if len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc {
		return true
	}
	return false
}

// CheckWebFetchURLResolved is CheckWebFetchURL plus a DNS resolution pass:
// a hostname that resolves to a denied IP is blocked even though the
// literal text of the URL is a public-looking domain. The runner calls
// this immediately before fetching; the dispatcher's pre-flight filter
// uses the cheaper literal-only check since it has no business doing DNS
// lookups on the core's behalf.
func CheckWebFetchURLResolved(ctx context.Context, rawURL string) error {
	if err := CheckWebFetchURL(rawURL); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL blocked by web fetch safety policy: unparseable url")
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return nil // already checked as a literal above
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		// Resolution failure is the fetch's problem, not the safety
		// policy's; let the caller's HTTP client surface the real error.
		return nil
	}
	for _, ip := range ips {
		if isDeniedIP(ip) {
			return fmt.Errorf("URL blocked by web fetch safety policy")
		}
	}
	return nil
}

// RequiresApprovalForBrowserMode reports whether a browser-mode web_fetch
// with the given requiresApproval value satisfies the policy that browser
// mode must always require approval.
func RequiresApprovalForBrowserMode(mode string, requiresApproval bool) error {
	if mode == "browser" && !requiresApproval {
		return fmt.Errorf("browser mode web_fetch must require approval")
	}
	return nil
}
