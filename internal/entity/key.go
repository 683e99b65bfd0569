package entity

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// KeyKind identifies what a lookup key refers to
type KeyKind string

const (
	KindIP  KeyKind = "ip"
	KindURL KeyKind = "url"
)

// Key is a validated, normalized lookup identifier
type Key struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

// String returns the normalized key value
func (k Key) String() string {
	return k.Value
}

// Host returns the address part of the key: the IP itself, or the URL host without port
func (k Key) Host() string {
	if k.Kind == KindIP {
		return k.Value
	}
	u, err := url.Parse(k.Value)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Addr returns the parsed IP of an IP key, or of a URL key whose host is an IP literal
func (k Key) Addr() (netip.Addr, bool) {
	addr, err := netip.ParseAddr(k.Host())
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

// ParseKey validates a raw key and returns its normalized form.
// Accepted: dotted-quad IPv4, IPv6 literals without zone, absolute http(s) URLs.
func ParseKey(raw string) (Key, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty key", ErrInvalidKeyFormat)
	}

	if addr, ok := parseIP(s); ok {
		return Key{Kind: KindIP, Value: addr.String()}, nil
	}

	if u, ok := parseURL(s); ok {
		return Key{Kind: KindURL, Value: u.String()}, nil
	}

	return Key{}, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, raw)
}

func parseIP(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func parseURL(s string) (*url.URL, bool) {
	if strings.ContainsAny(s, " \t\r\n") {
		return nil, false
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, false
	}

	host := u.Hostname()
	if host == "" {
		return nil, false
	}

	// A host written as numbers and dots has to be a real IPv4 address
	if looksNumeric(host) {
		if _, ok := parseIP(host); !ok {
			return nil, false
		}
	} else if strings.Contains(host, ":") {
		if _, ok := parseIP(host); !ok {
			return nil, false
		}
	} else if !validHostname(host) {
		return nil, false
	}

	u.Scheme = scheme
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(strings.ToLower(host), port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + strings.ToLower(host) + "]"
	} else {
		u.Host = strings.ToLower(host)
	}
	u.Fragment = ""
	u.RawFragment = ""

	return u, true
}

func looksNumeric(host string) bool {
	for _, r := range host {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

func validHostname(host string) bool {
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}
	return true
}
