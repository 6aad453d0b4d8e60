package middleware

import (
	"net/http"
	"strings"
)

// AuthCookie is set by the login handler once the password was accepted.
const AuthCookie = "authenticated"

// publicPath reports whether path is served without a login.
func publicPath(path string) bool {
	return path == "/login" ||
		path == "/auth/login" ||
		path == "/metrics" ||
		strings.HasPrefix(path, "/static/css/") ||
		strings.HasPrefix(path, "/static/js/")
}

// AuthMiddleware lets requests through when they carry the auth cookie. API
// calls without it get 401, page loads are redirected to the login page.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || cookie.Value != "true" {
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
