package netutil

import (
	"net/http"
	"net/netip"
	"strings"
	"unicode/utf8"
)

const MaxUserAgentLength = 256

// NormalizeIP accepts a bare address or one carrying a port ("192.0.2.4:1234",
// "[2001:db8::1]:443") and returns the IP without zone. ok is false when no IP
// could be extracted, in which case the trimmed input is returned.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return canonical(ap.Addr())
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		return canonical(addr)
	}

	host := raw
	switch {
	case strings.HasPrefix(raw, "[") && strings.Contains(raw, "]"):
		host = raw[1:strings.LastIndex(raw, "]")]
	case strings.LastIndex(raw, ":") > 0:
		host = raw[:strings.LastIndex(raw, ":")]
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return canonical(addr)
	}
	return raw, false
}

func canonical(addr netip.Addr) (string, bool) {
	addr = addr.WithZone("")
	if !addr.IsValid() {
		return "", false
	}
	return addr.Unmap().String(), true
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := NormalizeIP(first); ok {
			return ip
		}
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		if ip, ok := NormalizeIP(xr); ok {
			return ip
		}
	}
	if ip, ok := NormalizeIP(r.RemoteAddr); ok {
		return ip
	}
	return r.RemoteAddr
}

// TruncateUserAgent trims ua to MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	n := 0
	for i := range ua {
		if n == MaxUserAgentLength {
			return ua[:i]
		}
		n++
	}
	return ua
}
