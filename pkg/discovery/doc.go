// Package discovery advertises and finds rule store daemons with DNS-SD
// (mDNS) under the service type _aram._tcp.
//
// A daemon publishes its applet AID and GET DATA chunk size as TXT
// records:
//
//	aid=A00000015141434C00
//	chunk=255
//
// The grandcat/zeroconf library provides the mDNS implementation; tests
// substitute MDNSServerFactory and MDNSResolver.
package discovery
