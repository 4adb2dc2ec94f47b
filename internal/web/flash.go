package web

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Flash is a one-shot toast message carried across a redirect.
type Flash struct {
	Severity string // info, success, error
	Message  string
}

const flashCookie = "flash"

// setFlash queues a toast for the next page render.
func setFlash(w http.ResponseWriter, severity, message string) {
	value := base64.URLEncoding.EncodeToString([]byte(severity + "|" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// popFlash reads and clears the queued toast, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	decoded, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	severity, message, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil
	}
	return &Flash{Severity: severity, Message: message}
}
