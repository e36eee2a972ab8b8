package dedupe

import (
	"net/url"
	"strings"
	"unicode"
)

// NormalizePhone keeps only the decimal digits of a phone number.
// No country-code canonicalization is applied: "+971 50" and "0971-50" differ.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EmailDomain returns the part of an address after the first '@', or "" when there is none.
func EmailDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	if at := strings.IndexByte(domain, '@'); at >= 0 {
		domain = domain[:at]
	}
	return domain
}

// ExtractDomain returns the host of a website with any leading "www." removed.
// Inputs without an http(s) scheme are parsed as https URLs. When parsing fails the
// scheme, "www." and anything after the first '/' are stripped by hand instead.
func ExtractDomain(raw string) string {
	candidate := raw
	if !strings.HasPrefix(candidate, "http") {
		candidate = "https://" + candidate
	}

	if u, err := url.Parse(candidate); err == nil {
		if host := strings.ToLower(u.Hostname()); host != "" && !strings.ContainsFunc(host, unicode.IsSpace) {
			return strings.TrimPrefix(host, "www.")
		}
	}

	return fallbackDomain(raw)
}

func fallbackDomain(raw string) string {
	s := raw
	switch {
	case strings.HasPrefix(s, "https://"):
		s = strings.TrimPrefix(s, "https://")
	case strings.HasPrefix(s, "http://"):
		s = strings.TrimPrefix(s, "http://")
	}
	s = strings.TrimPrefix(s, "www.")
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		s = s[:slash]
	}
	return s
}
