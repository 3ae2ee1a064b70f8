package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) setRefreshCookie(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(h.opts.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) refreshFromCookie(r *http.Request) string {
	c, err := r.Cookie(h.opts.CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
