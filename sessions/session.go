// Package sessions persists one TokenSet per browser session.
//
// Two storage media are supported. RepoStore keeps the TokenSet server side (in memory or Redis)
// and gives the browser only an opaque session ID. CookieStore seals the whole TokenSet into
// an encrypted cookie, so the gateway itself stays stateless.
package sessions

import (
	"net/http"
	"time"

	"github.com/jrsteele09/hireai-gateway/tokens"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Store loads and saves the TokenSet of the session a request belongs to.
type Store interface {
	// Load returns the session's TokenSet, or an error wrapping ErrSessionNotFound,
	// ErrSessionExpired or ErrSessionInvalid.
	Load(r *http.Request) (tokens.TokenSet, error)
	// Save replaces the session's TokenSet and refreshes the session cookie.
	Save(w http.ResponseWriter, r *http.Request, ts tokens.TokenSet) error
	// Clear removes the session. Clearing a missing session is not an error.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// CookieOptions are the attributes of the session cookie.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (o CookieOptions) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		Expires:  NowTimeFunc().Add(o.MaxAge),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (o CookieOptions) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
