package ingest

import "net"

// privateRanges lists the IPv4 and IPv6 CIDR blocks treated as
// non-routable/private for SSRF purposes. 100.64.0.0/10 is the CGNAT range;
// only 100.64.0.0/10 itself is private, the wider 100.0.0.0/8 is not, so
// 100.128.0.0/9 addresses must resolve as public.
var privateRanges = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("ingest: invalid private range literal " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

// isPrivateAddr reports whether ip falls within a private/loopback/
// link-local/CGNAT/ULA range. IPv4-mapped IPv6 addresses are unwrapped to
// their embedded IPv4 form before the check. Non-IP or unparsable input is
// never treated as private by this function alone — hostnames must be
// resolved first.
func isPrivateAddr(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, n := range privateRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// isPrivateHost parses s as an IP literal and checks it against the
// private-address table. It returns false for anything that doesn't parse
// as an IP (i.e. ordinary hostnames, which are judged only after DNS
// resolution, never by the name itself).
func isPrivateHost(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return isPrivateAddr(ip)
}
