package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"golang.org/x/crypto/bcrypt"
)

const authUser = "toolkit" // hardcoded username for basic auth

// basicAuth middleware rejects requests without valid credentials.
// Browsers get the WWW-Authenticate challenge, api clients the json error.
func (s Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.checkBasicAuth(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="toolkit", charset="UTF-8"`)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			rest.SendErrorJSON(w, r, log.Default(), http.StatusUnauthorized, errors.New("unauthorized"), "unauthorized")
			return
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}

// checkBasicAuth validates basic auth credentials
func (s Server) checkBasicAuth(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}

	// constant-time username comparison
	usernameCorrect := subtle.ConstantTimeCompare([]byte(username), []byte(authUser)) == 1

	// bcrypt password check (already constant-time)
	passwordCorrect := bcrypt.CompareHashAndPassword([]byte(s.cfg.AuthHash), []byte(password)) == nil

	return usernameCorrect && passwordCorrect
}
