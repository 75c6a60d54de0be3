package netguard

import (
	"context"
	"net"

	"github.com/opencrust/opencrust/errors"
)

// ResolveAllowlist resolves every domain in domains and returns the union of
// their IPs, rejecting as soon as any resolved address is private/special-use.
// A domain that resolves to zero addresses is treated as a fatal error, as is
// an empty overall result — an allowlist that resolves to nothing permits
// nothing, which the caller should treat as misconfiguration rather than
// silently disabling network access.
func ResolveAllowlist(ctx context.Context, domains []string) ([]net.IP, error) {
	var resolved []net.IP

	for _, domain := range domains {
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip", domain)
		if err != nil {
			return nil, errors.WrapKind(err, errors.KindSecurity, "resolve allowlisted domain "+domain)
		}
		if len(ips) == 0 {
			return nil, errors.NewKind(errors.KindSecurity, "domain resolved to no addresses: "+domain)
		}
		for _, ip := range ips {
			if IsPrivateIP(ip) {
				return nil, errors.NewKind(errors.KindSecurity, "domain "+domain+" resolved to private address "+ip.String())
			}
			resolved = append(resolved, ip)
		}
	}

	if len(resolved) == 0 {
		return nil, errors.NewKind(errors.KindSecurity, "network allowlist resolved to no addresses")
	}
	return resolved, nil
}
