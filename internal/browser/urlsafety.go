package browser

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// URLSafetyError represents a provider URL that was rejected
type URLSafetyError struct {
	URL    string
	Reason string
}

func (e *URLSafetyError) Error() string {
	return fmt.Sprintf("provider URL rejected: %s", e.Reason)
}

// ValidateProviderURL checks a provider base or sign-in URL before the
// engine navigates an authenticated profile to it. Only https is accepted,
// and hosts resolving to loopback, private, link-local or metadata addresses
// are refused. allowPrivate lifts both rules for self-hosted front ends.
func ValidateProviderURL(rawURL string, allowPrivate bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch {
	case scheme == "https":
	case scheme == "http" && allowPrivate:
	default:
		return &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("scheme '%s' not allowed", parsed.Scheme)}
	}

	host := parsed.Hostname()
	if host == "" {
		return &URLSafetyError{URL: rawURL, Reason: "empty hostname"}
	}
	if allowPrivate {
		return nil
	}

	if isCloudMetadataHost(host) {
		return &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("cloud metadata hostname blocked: %s", host)}
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else if strings.EqualFold(host, "localhost") {
		ips = []net.IP{net.IPv4(127, 0, 0, 1)}
	} else {
		// Resolving catches encoded IPs and names that point inward
		resolved, err := net.LookupIP(host)
		if err != nil {
			return &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("DNS resolution failed: %v", err)}
		}
		ips = resolved
	}

	for _, ip := range ips {
		if reason := isBlockedIP(ip); reason != "" {
			L_debug("urlsafety: blocked provider IP", "url", rawURL, "ip", ip.String(), "reason", reason)
			return &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("%s (%s resolves to %s)", reason, host, ip)}
		}
	}
	return nil
}

// isBlockedIP returns a reason string if the IP should be blocked, empty string if OK
func isBlockedIP(ip net.IP) string {
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	}
	switch {
	case ip.IsLoopback():
		return "loopback address blocked"
	case ip.IsPrivate():
		return "private network address blocked"
	case ip.IsLinkLocalUnicast():
		return "link-local address blocked"
	case ip.IsMulticast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast():
		return "multicast address blocked"
	case ip.IsUnspecified():
		return "unspecified address blocked"
	}
	return ""
}

// isCloudMetadataHost checks for known cloud metadata hostnames
func isCloudMetadataHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, mh := range []string{"metadata.google.internal", "metadata.goog", "metadata"} {
		if host == mh || strings.HasSuffix(host, "."+mh) {
			return true
		}
	}
	return false
}
