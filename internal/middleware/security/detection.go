package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// Reasons reported by Inspect.
const (
	ReasonProbe        = "probe"
	ReasonScanner      = "scanner"
	ReasonMethod       = "method"
	ReasonLongURL      = "long_url"
	ReasonProxyChain   = "proxy_chain"
	ReasonCardInURL    = "card_number_in_url"
	maxURLLength       = 2048
	maxForwardedHops   = 6
	minCardDigitsInURL = 13
	maxCardDigitsInURL = 19
)

// DetectionMetrics counts flagged requests.
type DetectionMetrics struct {
	SuspiciousRequests int64
	CardNumbersInURL   int64
}

// Detector flags requests that look like probes and resolves client IPs
// behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	cardLeaks  atomic.Int64
	proxies    []netip.Prefix
	logger     *applog.Logger
}

var defaultProxies = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// probePaths never belong to this application.
var probePaths = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "wp-login", "phpmyadmin",
	".php", "etc/passwd", "cmd.exe", "<script", "javascript:", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}

// NewDetector creates a detector trusting loopback and private networks.
func NewDetector(logger *applog.Logger) *Detector {
	if logger == nil {
		logger = applog.Discard()
	}
	d := &Detector{logger: logger.WithComponent(applog.ComponentSecurity)}
	for _, p := range defaultProxies {
		d.proxies = append(d.proxies, netip.MustParsePrefix(p))
	}
	return d
}

// AddTrustedProxy trusts forwarded headers sent from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.proxies = append(d.proxies, p.Masked())
	return nil
}

// Inspect returns the reason a request looks suspicious, or "".
func (d *Detector) Inspect(r *http.Request) string {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", http.MethodConnect:
		return ReasonMethod
	}
	if len(r.URL.RequestURI()) > maxURLLength {
		return ReasonLongURL
	}

	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, p := range probePaths {
		if strings.Contains(target, p) {
			return ReasonProbe
		}
	}

	ua := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return ReasonScanner
		}
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxForwardedHops {
		return ReasonProxyChain
	}
	if containsCardNumber(r.URL.RawQuery) {
		return ReasonCardInURL
	}
	return ""
}

// containsCardNumber reports whether s carries a Luhn-valid digit run of card
// length. Card numbers travel in request bodies only.
func containsCardNumber(s string) bool {
	var run strings.Builder
	check := func() bool {
		n := run.Len()
		ok := n >= minCardDigitsInURL && n <= maxCardDigitsInURL && core.LuhnValid(run.String())
		run.Reset()
		return ok
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			run.WriteRune(c)
		case c == '+' || c == '-' || c == ' ' || c == '%':
			// separators used when numbers are typed in groups
		default:
			if check() {
				return true
			}
		}
	}
	return check()
}

// ExtractClientIP returns the caller address. Forwarded headers are only
// honoured when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		addr, aerr := netip.ParseAddr(r.RemoteAddr)
		if aerr != nil {
			return r.RemoteAddr
		}
		peer = netip.AddrPortFrom(addr, 0)
	}
	direct := peer.Addr().Unmap()
	if !d.trusted(direct) {
		return direct.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap().String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return direct.String()
}

func (d *Detector) trusted(addr netip.Addr) bool {
	for _, p := range d.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		CardNumbersInURL:   d.cardLeaks.Load(),
	}
}

// Middleware logs flagged requests and rejects diagnostic methods. A card
// number in the query string is rejected so it never reaches access logs.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.Inspect(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}

		d.suspicious.Add(1)
		d.logger.WarnContext(r.Context(), "Suspicious request detected",
			"reason", reason,
			applog.FieldClientIP, d.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldUserAgent, r.UserAgent())

		switch reason {
		case ReasonMethod:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		case ReasonCardInURL:
			d.cardLeaks.Add(1)
			http.Error(w, "Card numbers must not be sent in the URL", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}
