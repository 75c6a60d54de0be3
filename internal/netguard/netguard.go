// Package netguard classifies IP addresses as private/special-use, the
// check the plugin sandbox's network permission scoping relies on to
// refuse letting a plugin's declared allowlist resolve to internal
// infrastructure.
package netguard

import (
	"net"
	"strings"
)

// IsPrivateIP reports whether ip falls in a loopback, link-local,
// unique-local, unspecified, multicast, reserved, or RFC1918 range. A
// plugin's network allowlist entry resolving to such an address is
// rejected as an SSRF attempt.
func IsPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		privateBlocks := []net.IPNet{
			{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},     // 10.0.0.0/8
			{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},  // 172.16.0.0/12
			{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)}, // 192.168.0.0/16
			{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},    // 127.0.0.0/8 loopback
			{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)}, // 169.254.0.0/16 link-local
			{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},      // 0.0.0.0/8
			{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},    // 224.0.0.0/4 multicast
			{IP: net.IPv4(240, 0, 0, 0), Mask: net.CIDRMask(4, 32)},    // 240.0.0.0/4 reserved
		}
		for _, block := range privateBlocks {
			if block.Contains(ip4) {
				return true
			}
		}
		return false
	}

	if len(ip) != net.IPv6len {
		return false
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}

	// Unique local (fc00::/7, covers fc00::/8 and fd00::/8)
	if ip[0]&0xfe == 0xfc {
		return true
	}

	// Site-local (fec0::/10), deprecated but still treated as internal
	if ip[0] == 0xfe && ip[1]&0xc0 == 0xc0 {
		return true
	}

	// Documentation prefix (2001:db8::/32)
	if ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8 {
		return true
	}

	return false
}

// IsLocalhost reports whether hostname is a localhost alias. Hostnames
// aren't resolved here — callers still need to resolve and check the
// resulting IPs with IsPrivateIP.
func IsLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
