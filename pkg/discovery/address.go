package discovery

import (
	"net"
	"sort"
)

// SortIPsByPreference returns a copy of ips ordered for dialing:
//  1. Global unicast addresses
//  2. Private IPv4 and IPv6 unique local addresses
//  3. IPv6 link-local addresses
//  4. Loopback addresses
func SortIPsByPreference(ips []net.IP) []net.IP {
	if len(ips) <= 1 {
		return ips
	}

	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ipPriority(sorted[i]) < ipPriority(sorted[j])
	})
	return sorted
}

// ipPriority returns the priority of an IP address (lower is better).
func ipPriority(ip net.IP) int {
	switch {
	case ip.To16() == nil:
		return 99
	case ip.IsLoopback():
		return 80
	case ip.IsMulticast() || ip.IsUnspecified():
		return 90
	case ip.IsPrivate():
		return 1
	case ip.IsGlobalUnicast():
		return 0
	case ip.IsLinkLocalUnicast():
		// Needs a zone to be dialed.
		return 2
	}
	return 10
}

// FilterIPv6 returns only IPv6 addresses from the slice.
func FilterIPv6(ips []net.IP) []net.IP {
	var result []net.IP
	for _, ip := range ips {
		if ip.To4() == nil && ip.To16() != nil {
			result = append(result, ip)
		}
	}
	return result
}

// FilterIPv4 returns only IPv4 addresses from the slice.
func FilterIPv4(ips []net.IP) []net.IP {
	var result []net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			result = append(result, ip)
		}
	}
	return result
}
