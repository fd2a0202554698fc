package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"melcloud_bridge/internal/types"
)

const loginPage = `<!doctype html>
<html><head><script>
var PAGE_CONFIG = {"csrf":"csrf-tok-1","flowId":"flow-abc"};
</script></head><body>login</body></html>`

// vendorStub emulates the login form, credential endpoint and one API path on
// a single httptest server standing in for both app and IdP hosts.
type vendorStub struct {
	t *testing.T

	loginHits  int
	signinHits int
	apiHits    int

	// apiStatus returns the status for the nth API hit (1-based).
	apiStatus func(n int) int

	signinStatus  int
	loginHeaders  http.Header
	signinHeaders http.Header
	apiHeaders    http.Header
}

func newVendorStub(t *testing.T) (*vendorStub, *httptest.Server) {
	v := &vendorStub{
		t:            t,
		apiStatus:    func(int) int { return http.StatusOK },
		signinStatus: http.StatusOK,
	}
	srv := httptest.NewServer(http.HandlerFunc(v.handle))
	t.Cleanup(srv.Close)
	return v, srv
}

func (v *vendorStub) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		v.loginHits++
		v.loginHeaders = r.Header.Clone()
		fmt.Fprint(w, loginPage)
	case "/account/signin":
		v.signinHits++
		v.signinHeaders = r.Header.Clone()
		w.WriteHeader(v.signinStatus)
	case "/api/ping":
		v.apiHits++
		v.apiHeaders = r.Header.Clone()
		status := v.apiStatus(v.apiHits)
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, `{"ok":true}`)
		}
	default:
		v.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestManager(srv *httptest.Server) *SessionManager {
	s := NewSessionManager(Credentials{Username: "user@example.com", Password: "secret"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.appBase = srv.URL
	s.idpBase = srv.URL
	s.settleDelay = 0
	return s
}

func TestLogin_ScrapesConfigAndPostsCredentials(t *testing.T) {
	v, srv := newVendorStub(t)
	s := newTestManager(srv)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if v.loginHits != 1 || v.signinHits != 1 {
		t.Errorf("hits = %d login, %d signin; want 1 each", v.loginHits, v.signinHits)
	}

	// The login page fetch must already look like a real browser.
	if ua := v.loginHeaders.Get("User-Agent"); ua != userAgent {
		t.Errorf("login User-Agent = %q", ua)
	}
	if v.loginHeaders.Get("Sec-CH-UA") == "" || v.loginHeaders.Get("Sec-CH-UA-Platform") == "" {
		t.Error("login request missing client-hint headers")
	}

	// The credential post carries the scraped CSRF token and a Referer.
	if got := v.signinHeaders.Get("X-Csrf-Token"); got != "csrf-tok-1" {
		t.Errorf("signin X-Csrf-Token = %q, want csrf-tok-1", got)
	}
	if got := v.signinHeaders.Get("Referer"); got != srv.URL+"/login" {
		t.Errorf("signin Referer = %q", got)
	}
}

func TestRequest_LazyLoginAndHeaderInjection(t *testing.T) {
	v, srv := newVendorStub(t)
	s := newTestManager(srv)

	status, body, err := s.Request(context.Background(), "GET", "/api/ping", nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if status != http.StatusOK || string(body) != `{"ok":true}` {
		t.Errorf("response = %d %s", status, body)
	}
	if s.logins != 1 {
		t.Errorf("logins = %d, want 1 (lazy login on first request)", s.logins)
	}

	// CSRF token and dashboard Referer go on GETs too.
	if got := v.apiHeaders.Get("X-Csrf-Token"); got != "csrf-tok-1" {
		t.Errorf("API X-Csrf-Token = %q, want csrf-tok-1", got)
	}
	if got := v.apiHeaders.Get("Referer"); got != srv.URL+"/dashboard" {
		t.Errorf("API Referer = %q", got)
	}
	if got := v.apiHeaders.Get("User-Agent"); got != userAgent {
		t.Errorf("API User-Agent = %q", got)
	}

	// The session is reused: a second request does not log in again.
	if _, _, err := s.Request(context.Background(), "GET", "/api/ping", nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if s.logins != 1 {
		t.Errorf("logins = %d after second request, want 1", s.logins)
	}
}

func TestRequest_RecoversFromSingle401(t *testing.T) {
	v, srv := newVendorStub(t)
	s := newTestManager(srv)

	v.apiStatus = func(n int) int {
		if n == 1 {
			return http.StatusUnauthorized
		}
		return http.StatusOK
	}

	status, _, err := s.Request(context.Background(), "GET", "/api/ping", nil)
	if err != nil {
		t.Fatalf("Request() error = %v, want transparent recovery", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if s.logins != 2 {
		t.Errorf("logins = %d, want 2 (initial + one re-login)", s.logins)
	}
	if v.apiHits != 2 {
		t.Errorf("API hits = %d, want 2", v.apiHits)
	}
}

func TestRequest_SecondConsecutive401IsAuthFailure(t *testing.T) {
	v, srv := newVendorStub(t)
	s := newTestManager(srv)

	v.apiStatus = func(int) int { return http.StatusUnauthorized }

	_, _, err := s.Request(context.Background(), "GET", "/api/ping", nil)
	if !errors.Is(err, types.ErrAuthentication) {
		t.Fatalf("error = %v, want ErrAuthentication", err)
	}
	// Exactly one re-login: never hammer an IdP with bot detection.
	if s.logins != 2 {
		t.Errorf("logins = %d, want 2", s.logins)
	}
	if v.apiHits != 2 {
		t.Errorf("API hits = %d, want 2", v.apiHits)
	}

	// The next request starts from scratch with a fresh login.
	v.apiStatus = func(int) int { return http.StatusOK }
	if _, _, err := s.Request(context.Background(), "GET", "/api/ping", nil); err != nil {
		t.Fatalf("Request() after recovery error = %v", err)
	}
	if s.logins != 3 {
		t.Errorf("logins = %d, want 3", s.logins)
	}
}

func TestLogin_MissingPageConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>unexpected page</body></html>")
	}))
	defer srv.Close()
	s := newTestManager(srv)

	err := s.Login(context.Background())
	if !errors.Is(err, types.ErrAuthentication) {
		t.Errorf("error = %v, want ErrAuthentication", err)
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	v, srv := newVendorStub(t)
	s := newTestManager(srv)
	v.signinStatus = http.StatusForbidden

	err := s.Login(context.Background())
	if !errors.Is(err, types.ErrAuthentication) {
		t.Errorf("error = %v, want ErrAuthentication", err)
	}
}

func TestLogin_ConnectivityFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	s := newTestManager(srv)
	err := s.Login(context.Background())
	if !errors.Is(err, types.ErrConnectivity) {
		t.Errorf("error = %v, want ErrConnectivity", err)
	}
}
