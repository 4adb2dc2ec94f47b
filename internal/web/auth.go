package web

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/decoryard/decoryard/internal/auth"
	"github.com/decoryard/decoryard/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{Title: "Log in"})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Flash: &Flash{Severity: "error", Message: "Enter a username and password."},
		})
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil || user == nil || user.DeletedAt != nil {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Flash: &Flash{Severity: "error", Message: "Wrong username or password."},
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Flash: &Flash{Severity: "error", Message: "Wrong username or password."},
		})
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Log in",
			Flash: &Flash{Severity: "error", Message: "Login failed."},
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.SessionExpiry / time.Second),
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. The session token is revoked so it cannot be
// replayed before expiry.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		if claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value); err == nil && claims.ID != "" {
			_ = store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time)
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
