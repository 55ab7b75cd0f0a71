package middleware

import (
	"log/slog"
	"net"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() resolve the client address through
// X-Forwarded-For, but only for hops inside trustedCIDRs. Without it every
// client behind the load balancer shares one sign-in rate-limit bucket.
//
// Echo's own defaults (loopback, link-local and private ranges) are switched
// off, so only the configured ranges are trusted.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = echo.ExtractIPFromXFFHeader(trustOptions(trustedCIDRs)...)
}

// trustOptions converts CIDR strings into echo trust options. Unparseable
// entries are logged and skipped.
func trustOptions(trustedCIDRs []string) []echo.TrustOption {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		opts = append(opts, echo.TrustIPRange(network))
	}
	return opts
}
