package auth

import (
	"net/http"
	"time"
)

// SessionCookie describes how the session handle travels to the browser.
type SessionCookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (s SessionCookie) Set(w http.ResponseWriter, handle string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    handle,
		Path:     "/",
		MaxAge:   int(s.MaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Secure,
	})
}

func (s SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Secure,
	})
}

// Handle returns the session handle carried by r, if any.
func (s SessionCookie) Handle(r *http.Request) string {
	cookie, err := r.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
