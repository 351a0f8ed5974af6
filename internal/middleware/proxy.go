package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() report the client behind the proxies
// listed in TRUSTED_PROXIES. The login rate limiter and the request log key
// on that address. Forwarding headers from any other peer are ignored.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = proxyAwareExtractor(parseProxyCIDRs(trustedCIDRs))
}

// parseProxyCIDRs skips entries that do not parse, logging each one.
func parseProxyCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		nets = append(nets, network)
	}
	return nets
}

func proxyAwareExtractor(proxies []*net.IPNet) echo.IPExtractor {
	return func(req *http.Request) string {
		peer := peerIP(req.RemoteAddr)
		if !inNetworks(peer, proxies) {
			return peer
		}

		if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		// X-Forwarded-For lists the client first.
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			client, _, _ := strings.Cut(xff, ",")
			if client = strings.TrimSpace(client); client != "" {
				return client
			}
		}
		return peer
	}
}

func peerIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func inNetworks(addr string, networks []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range networks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
