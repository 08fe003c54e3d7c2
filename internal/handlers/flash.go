package handlers

import (
	"net/http"
	"strings"

	"bloogle/internal/security"
)

const flashMaxAge = 60

type flashMessage struct {
	Kind string
	Text string
}

// flashCodec carries one message across a redirect in a signed cookie.
type flashCodec struct {
	name   string
	secret string
	secure bool
}

func (f flashCodec) set(w http.ResponseWriter, kind string, text string) {
	http.SetCookie(w, &http.Cookie{
		Name:     f.name,
		Value:    security.Seal(f.secret, kind+"|"+text),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   f.secure,
	})
}

// take reads and clears the pending message. Tampered cookies are dropped.
func (f flashCodec) take(w http.ResponseWriter, r *http.Request) *flashMessage {
	cookie, err := r.Cookie(f.name)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     f.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   f.secure,
	})

	raw, ok := security.Open(f.secret, cookie.Value)
	if !ok {
		return nil
	}
	kind, text, ok := strings.Cut(raw, "|")
	if !ok {
		return nil
	}
	return &flashMessage{Kind: kind, Text: text}
}
