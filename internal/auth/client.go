// Package auth owns the authenticated MELCloud session: the browser-emulating
// login flow, cookie lifetime, required header injection and transparent
// re-login on expiry. No other package touches session state directly.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"melcloud_bridge/internal/types"
)

const (
	defaultAppBase = "https://app.melcloud.com"
	defaultIdpBase = "https://id.melcloud.com"

	loginPath      = "/login"
	dashboardPath  = "/dashboard"
	credentialPath = "/account/signin"

	// The identity provider fingerprints clients. The User-Agent and the
	// client-hint headers must describe the same browser; a generic or
	// mismatched client is silently rejected with the same response as bad
	// credentials.
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	secChUA         = `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`
	secChUAMobile   = "?0"
	secChUAPlatform = `"Windows"`

	// The IdP frontend finishes session setup asynchronously after the final
	// redirect lands. API calls issued immediately after the redirect fail
	// even with valid cookies, so the session is only usable after this delay.
	defaultSettleDelay = 3 * time.Second
)

// Credentials holds the account email and password.
type Credentials struct {
	Username string
	Password string
}

// Session is the authenticated context produced by one login. The expiry is
// not server-guaranteed; it is inferred from 401s on subsequent requests.
type Session struct {
	CSRF          string
	EstablishedAt time.Time
}

// SessionManager performs the login dance and keeps exactly one live session.
// All vendor traffic goes through Request, which re-authenticates at most once
// on a 401 and surfaces ErrAuthentication on the second consecutive one.
type SessionManager struct {
	httpClient *http.Client
	creds      Credentials
	logger     *slog.Logger

	appBase     string
	idpBase     string
	settleDelay time.Duration

	mu      sync.Mutex
	session *Session
	logins  int
}

// NewSessionManager creates a session manager for one account. The cookie jar
// uses the public suffix list so vendor and IdP cookies are scoped correctly.
func NewSessionManager(creds Credentials, logger *slog.Logger) *SessionManager {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &SessionManager{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		creds:       creds,
		logger:      logger,
		appBase:     defaultAppBase,
		idpBase:     defaultIdpBase,
		settleDelay: defaultSettleDelay,
	}
}

// Login performs the full browser-emulating login flow and replaces the
// current session. Callers normally never need this; Request logs in lazily.
func (s *SessionManager) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLocked(ctx)
}

func (s *SessionManager) loginLocked(ctx context.Context) error {
	s.logger.Debug("Starting login", "username", s.creds.Username)
	s.logins++

	// Step 1: land on the IdP login form and scrape the CSRF token and flow
	// id out of the embedded PAGE_CONFIG blob.
	cfg, err := s.fetchLoginPage(ctx)
	if err != nil {
		return fmt.Errorf("login page: %w", err)
	}

	// Step 2: post credentials. On success the IdP redirect chain lands back
	// on the dashboard; anything else is indistinguishable from bad
	// credentials (the IdP reports bot rejection the same way).
	if err := s.postCredentials(ctx, cfg); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	// Step 3: the session is not usable until the IdP frontend finishes its
	// asynchronous initialization.
	if err := s.settle(ctx); err != nil {
		return err
	}

	s.session = &Session{CSRF: cfg.CSRF, EstablishedAt: time.Now()}
	s.logger.Info("Login successful", "username", s.creds.Username)
	return nil
}

// pageConfig is the JSON blob the IdP login page embeds in a script tag.
type pageConfig struct {
	CSRF   string `json:"csrf"`
	FlowID string `json:"flowId"`
}

var pageConfigRe = regexp.MustCompile(`var PAGE_CONFIG = ([\s\S]*?});`)

func (s *SessionManager) fetchLoginPage(ctx context.Context) (*pageConfig, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.appBase+loginPath, nil)
	if err != nil {
		return nil, err
	}
	s.setBrowserHeaders(req)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConnectivity, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)

	m := pageConfigRe.FindSubmatch(body)
	if len(m) < 2 {
		return nil, fmt.Errorf("%w: PAGE_CONFIG not found in login page", types.ErrAuthentication)
	}

	var cfg pageConfig
	if err := json.Unmarshal(bytes.TrimSpace(m[1]), &cfg); err != nil {
		return nil, fmt.Errorf("parse PAGE_CONFIG: %w", err)
	}
	if cfg.CSRF == "" || cfg.FlowID == "" {
		return nil, fmt.Errorf("%w: incomplete PAGE_CONFIG", types.ErrAuthentication)
	}

	return &cfg, nil
}

func (s *SessionManager) postCredentials(ctx context.Context, cfg *pageConfig) error {
	form := url.Values{}
	form.Set("email", s.creds.Username)
	form.Set("password", s.creds.Password)

	u := s.idpBase + credentialPath + "?flow=" + url.QueryEscape(cfg.FlowID)
	req, err := http.NewRequestWithContext(ctx, "POST", u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	s.setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Csrf-Token", cfg.CSRF)
	req.Header.Set("Referer", s.appBase+loginPath)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrConnectivity, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("%w: sign in returned %d", types.ErrAuthentication, res.StatusCode)
	}

	// The redirect chain must end on the dashboard. A 200 that stayed on the
	// IdP is a rejected login.
	final := res.Request.URL.String()
	if !strings.HasPrefix(final, s.appBase) {
		return fmt.Errorf("%w: redirect chain ended at %s", types.ErrAuthentication, final)
	}

	return nil
}

func (s *SessionManager) settle(ctx context.Context) error {
	if s.settleDelay <= 0 {
		return nil
	}
	s.logger.Debug("Waiting for session to settle", "delay", s.settleDelay)
	t := time.NewTimer(s.settleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Request issues one authenticated call against the vendor API. The CSRF token
// and dashboard Referer are injected on every method, GETs included; this
// vendor returns spurious 401s without them. A single 401 triggers exactly one
// re-login and retry; a second consecutive 401 surfaces as ErrAuthentication.
func (s *SessionManager) Request(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		if err := s.loginLocked(ctx); err != nil {
			return 0, nil, err
		}
	}

	status, body, err := s.doOnce(ctx, method, path, payload)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized {
		return status, body, nil
	}

	// One transparent recovery attempt. Retrying beyond that against an IdP
	// with aggressive bot detection risks an account lockout.
	s.logger.Warn("Session rejected, re-authenticating", "method", method, "path", path)
	s.session = nil
	if err := s.loginLocked(ctx); err != nil {
		return 0, nil, err
	}

	status, body, err = s.doOnce(ctx, method, path, payload)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		s.session = nil
		return 0, nil, fmt.Errorf("%w: still unauthorized after re-login", types.ErrAuthentication)
	}
	return status, body, nil
}

func (s *SessionManager) doOnce(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.appBase+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	s.setBrowserHeaders(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Csrf-Token", s.session.CSRF)
	req.Header.Set("Referer", s.appBase+dashboardPath)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logger.Debug("API request", "method", method, "path", path)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", types.ErrConnectivity, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", types.ErrConnectivity, err)
	}

	return res.StatusCode, body, nil
}

func (s *SessionManager) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Sec-CH-UA", secChUA)
	req.Header.Set("Sec-CH-UA-Mobile", secChUAMobile)
	req.Header.Set("Sec-CH-UA-Platform", secChUAPlatform)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
}
