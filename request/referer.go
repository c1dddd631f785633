package request

import (
	"net"
	"net/url"
	"strings"
)

// TrustChecker decides once per request whether its declared origin is accepted.
type TrustChecker interface {
	Trusted(referer, host string) bool
}

// RefererVerifier accepts requests whose Referer host is the request host or
// one of a fixed set of extra hosts, such as AMP cache domains.
type RefererVerifier struct {
	allowed []string
}

func NewRefererVerifier(allowedHosts ...string) *RefererVerifier {
	allowed := make([]string, 0, len(allowedHosts))
	for _, host := range allowedHosts {
		if host = strings.TrimSpace(host); host != "" {
			allowed = append(allowed, host)
		}
	}
	return &RefererVerifier{allowed: allowed}
}

func (v *RefererVerifier) Trusted(referer, host string) bool {
	return VerifyReferer(referer, host, v.allowed...)
}

// VerifyReferer reports whether referer names host (or one of allowed).
// Hosts compare case-insensitively and without ports. A missing referer or
// host is never trusted.
func VerifyReferer(referer, host string, allowed ...string) bool {
	if referer == "" || host == "" {
		return false
	}

	u, err := url.Parse(referer)
	if err != nil {
		return false
	}

	refererHost := u.Hostname()
	if refererHost == "" {
		return false
	}

	if strings.EqualFold(refererHost, stripPort(host)) {
		return true
	}

	for _, candidate := range allowed {
		if strings.EqualFold(refererHost, stripPort(candidate)) {
			return true
		}
	}

	return false
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}
