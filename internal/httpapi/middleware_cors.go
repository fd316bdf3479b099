package httpapi

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// corsMiddleware allows the admin front-end origins from config, plus
// localhost and same-host requests for development.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !isAllowedCORSOrigin(origin, r, allowed) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					if _, err := w.Write([]byte("CORS origin not allowed")); err != nil {
						logError(r.Context(), "write cors forbidden response failed", err)
					}
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Max-Age", "600")

			if reqHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers")); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			} else {
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAllowedCORSOrigin(origin string, r *http.Request, allowed map[string]struct{}) bool {
	if _, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(strings.TrimSpace(u.Scheme))
	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	if scheme == "" || host == "" {
		return false
	}
	if scheme != "http" && scheme != "https" {
		return false
	}

	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	// Always allow same-host requests.
	reqHostname := strings.ToLower(strings.TrimSpace(hostnameFromHostPort(r.Host)))
	return reqHostname != "" && host == reqHostname
}

func hostnameFromHostPort(hostport string) string {
	v := strings.TrimSpace(hostport)
	if v == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(v); err == nil {
		return strings.Trim(host, "[]")
	}
	return strings.Trim(v, "[]")
}
