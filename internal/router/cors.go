package router

import (
	"net/http"
	"strings"
)

// corsPolicy is the parsed CORS_ALLOW_ORIGIN setting: a comma separated
// list of origins, "*" or empty for any origin.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]bool
	credentials bool
}

func newCORSPolicy(allowOrigin string, allowCredentials bool) corsPolicy {
	p := corsPolicy{origins: map[string]bool{}, credentials: allowCredentials}
	for _, o := range strings.Split(allowOrigin, ",") {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins[o] = true
		}
	}
	if len(p.origins) == 0 {
		p.anyOrigin = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for the request
// origin and whether the answer varies by origin.
func (p corsPolicy) allowOrigin(origin string) (string, bool) {
	if p.anyOrigin {
		// браузер не принимает "*" вместе с credentials
		if p.credentials && origin != "" {
			return origin, true
		}
		return "*", false
	}
	if p.origins[origin] {
		return origin, true
	}
	return "", true
}

// withCORS adds CORS headers and answers preflight requests itself.
func withCORS(p corsPolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		value, vary := p.allowOrigin(r.Header.Get("Origin"))
		if value != "" {
			h.Set("Access-Control-Allow-Origin", value)
		}
		if vary {
			h.Add("Vary", "Origin")
		}
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
