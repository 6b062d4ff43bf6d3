package middleware

import (
	"net/http"
)

// CORSPolicy reflects allow-listed caller origins and falls back to a
// default origin for everyone else. Sandboxed webviews send the literal
// origin "null"; list it explicitly to allow them.
type CORSPolicy struct {
	allowed       map[string]struct{}
	defaultOrigin string
}

// NewCORSPolicy builds a policy from an allow-list and a fallback origin.
func NewCORSPolicy(allowed []string, defaultOrigin string) *CORSPolicy {
	p := &CORSPolicy{
		allowed:       make(map[string]struct{}, len(allowed)),
		defaultOrigin: defaultOrigin,
	}
	for _, o := range allowed {
		p.allowed[o] = struct{}{}
	}
	return p
}

// AllowOrigin returns the value for Access-Control-Allow-Origin.
func (p *CORSPolicy) AllowOrigin(origin string) string {
	if _, ok := p.allowed[origin]; ok {
		return origin
	}
	return p.defaultOrigin
}

// Apply writes the CORS headers for r into h.
func (p *CORSPolicy) Apply(h http.Header, r *http.Request) {
	requested := r.Header.Get("Access-Control-Request-Headers")
	if requested == "" {
		requested = "Content-Type"
	}
	h.Set("Access-Control-Allow-Origin", p.AllowOrigin(r.Header.Get("Origin")))
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", requested)
	h.Set("Access-Control-Max-Age", "86400")
	h.Set("Vary", "Origin, Access-Control-Request-Headers")
}

// Preflight answers every OPTIONS request with 204 and CORS headers,
// regardless of path. Mount it before routing.
func Preflight(p *CORSPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			p.Apply(w.Header(), r)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// CORS attaches CORS headers to every response of the wrapped routes.
func CORS(p *CORSPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p.Apply(w.Header(), r)
			next.ServeHTTP(w, r)
		})
	}
}
