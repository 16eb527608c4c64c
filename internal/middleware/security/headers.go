package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Directive is one Content-Security-Policy directive.
type Directive struct {
	Name    string
	Sources []string
}

// HeadersConfig controls the headers added to every response.
type HeadersConfig struct {
	// PageCSP applies to HTML pages and partials.
	PageCSP []Directive
	// APICSP applies to /api responses, which never render markup.
	APICSP []Directive

	// HSTSMaxAge is sent only on TLS connections; 0 disables it.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	FrameOptions        string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
	// CrossOriginEmbedder stays empty: the htmx and chart CDNs send no CORP header.
	CrossOriginEmbedder string
}

// Script origins of the page layout.
const (
	htmxOrigin  = "https://unpkg.com"
	chartOrigin = "https://cdn.jsdelivr.net"
)

// DefaultHeadersConfig returns the policy for the dashboard.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		PageCSP: []Directive{
			{"default-src", []string{"'self'"}},
			{"script-src", []string{"'self'", htmxOrigin, chartOrigin}},
			{"style-src", []string{"'self'", "'unsafe-inline'"}},
			{"img-src", []string{"'self'", "data:"}},
			{"connect-src", []string{"'self'"}},
			{"object-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
			{"base-uri", []string{"'self'"}},
			{"form-action", []string{"'self'"}},
		},
		APICSP: []Directive{
			{"default-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
		},
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
	}
}

func renderCSP(directives []Directive) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(parts, "; ")
}

// HeadersMiddleware applies HeadersConfig.
type HeadersMiddleware struct {
	fixed   map[string]string
	pageCSP string
	apiCSP  string
	hsts    string
}

// NewHeadersMiddleware renders the header values once.
func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{
		fixed: map[string]string{
			"X-Content-Type-Options": "nosniff",
		},
		pageCSP: renderCSP(cfg.PageCSP),
		apiCSP:  renderCSP(cfg.APICSP),
	}
	for k, v := range map[string]string{
		"X-Frame-Options":              cfg.FrameOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Permissions-Policy":           cfg.PermissionsPolicy,
		"Cross-Origin-Opener-Policy":   cfg.CrossOriginOpener,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResource,
		"Cross-Origin-Embedder-Policy": cfg.CrossOriginEmbedder,
	} {
		if v != "" {
			h.fixed[k] = v
		}
	}
	if cfg.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

// Middleware sets the headers before the handler runs. Everything outside
// /static/ carries per-user data and is marked no-store.
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for k, v := range h.fixed {
			headers.Set(k, v)
		}

		csp := h.pageCSP
		if strings.HasPrefix(r.URL.Path, "/api/") {
			csp = h.apiCSP
		}
		if csp != "" {
			headers.Set("Content-Security-Policy", csp)
		}
		if !strings.HasPrefix(r.URL.Path, "/static/") {
			headers.Set("Cache-Control", "no-store")
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache embedded assets for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
