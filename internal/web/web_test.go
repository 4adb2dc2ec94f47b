package web_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/decoryard/decoryard/internal/api"
	"github.com/decoryard/decoryard/internal/client"
	"github.com/decoryard/decoryard/internal/db"
	"github.com/decoryard/decoryard/internal/lifecycle"
	"github.com/decoryard/decoryard/internal/store"
	"github.com/decoryard/decoryard/internal/web"
)

// newConsole spins up a console backed by an in-memory database and an
// in-process deployment API.
func newConsole(t *testing.T) *httptest.Server {
	t.Helper()

	database := db.NewTestDB(t)

	apiServer := httptest.NewServer(api.NewRouter(database))
	t.Cleanup(apiServer.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if _, err := store.CreateUser(t.Context(), database, "admin", string(hash), "admin"); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	apiClient := client.New(apiServer.URL)
	controller := lifecycle.NewController(apiClient, nil)

	router, err := web.NewRouter(database, "test-secret", apiClient, controller)
	if err != nil {
		t.Fatalf("setting up router: %v", err)
	}

	// Same composition as the binary: everything behind the request logger.
	srv := httptest.NewServer(api.LoggingMiddleware(router))
	t.Cleanup(srv.Close)
	return srv
}

// login authenticates as the fixture admin and returns the session cookie.
func login(t *testing.T, srv *httptest.Server) *http.Cookie {
	t.Helper()

	form := url.Values{"username": {"admin"}, "password": {"correct horse"}}
	resp, err := noRedirects().Post(srv.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("expected a session cookie after login")
	return nil
}

// noRedirects returns a client that reports redirects instead of following them.
func noRedirects() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestDashboardRequiresLogin(t *testing.T) {
	srv := newConsole(t)

	resp, err := noRedirects().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	srv := newConsole(t)
	httpClient := noRedirects()

	form := url.Values{"username": {"admin"}, "password": {"correct horse"}}
	resp, err := httpClient.Post(srv.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect after login, got %d", resp.StatusCode)
	}

	var token *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			token = c
		}
	}
	if token == nil || token.Value == "" {
		t.Fatal("expected a session cookie after login")
	}

	// The cookie opens the dashboard.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.AddCookie(token)
	resp, err = httpClient.Do(req)
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with session cookie, got %d", resp.StatusCode)
	}

	// Logging out revokes the token, so replaying the cookie fails.
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/logout", nil)
	req.AddCookie(token)
	resp, err = httpClient.Do(req)
	if err != nil {
		t.Fatalf("POST /logout: %v", err)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.AddCookie(token)
	resp, err = httpClient.Do(req)
	if err != nil {
		t.Fatalf("GET / after logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", resp.StatusCode)
	}
}

func TestTimerStreamBehindLoggingMiddleware(t *testing.T) {
	srv := newConsole(t)
	token := login(t, srv)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/timer", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.AddCookie(token)

	resp, err := noRedirects().Do(req)
	if err != nil {
		t.Fatalf("GET /events/timer: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from the event stream, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("reading first event: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("expected an event data line, got %q", line)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newConsole(t)

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	resp, err := noRedirects().Post(srv.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected the login page again, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "token" && c.Value != "" {
			t.Fatal("no session cookie should be set on failed login")
		}
	}
}
