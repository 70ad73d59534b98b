// Package session owns the authenticated Hacker News session: login, page
// fetches and hide submissions all go through one cookie-holding client.
// Authentication state never leaves this package; callers only see markup
// strings and success or failure.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Login outcomes the caller branches on.
var (
	// ErrBadLogin means the site rejected the credentials.
	ErrBadLogin = errors.New("bad login")
	// ErrValidationRequired means too many failed attempts: the site now
	// demands captcha validation. Retrying only worsens the block, so this
	// must be treated as fatal and left to time out on its own.
	ErrValidationRequired = errors.New("validation required")
)

const (
	maxPageBytes = 5 * 1024 * 1024

	// Hacker News starts answering 503 when hides arrive back to back.
	// The pause between hide submissions is a deliberate throttle.
	defaultHideCooldown = 3 * time.Second
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session is an authenticated connection to the remote site.
type Session struct {
	client        HTTPClient
	baseURL       string
	username      string
	password      string
	userAgent     string
	hideCooldown  time.Duration
	authConfirmed time.Time
	log           *slog.Logger
}

// New creates a Session with a cookie-persisting HTTP client.
func New(baseURL, username, password, userAgent string, log *slog.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
	}
	return NewWithClient(baseURL, username, password, userAgent, client, log), nil
}

// NewWithClient creates a Session with a custom HTTP client (useful for testing).
func NewWithClient(baseURL, username, password, userAgent string, client HTTPClient, log *slog.Logger) *Session {
	return &Session{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		username:     username,
		password:     password,
		userAgent:    userAgent,
		hideCooldown: defaultHideCooldown,
		log:          log,
	}
}

// SetHideCooldown overrides the pause before each hide submission.
func (s *Session) SetHideCooldown(d time.Duration) {
	s.hideCooldown = d
}

// AuthConfirmedAt returns when the session's authentication was last
// confirmed by a successful request.
func (s *Session) AuthConfirmedAt() time.Time {
	return s.authConfirmed
}

// Login authenticates against the site. The response cookies are retained by
// the client, so a nil return means all later requests ride the same session.
func (s *Session) Login(ctx context.Context) error {
	s.log.Info("logging into Hacker News", "user", s.username)

	form := url.Values{
		"acct": {s.username},
		"pw":   {s.password},
		"goto": {"news"},
	}
	body, err := s.postForm(ctx, "/login", form)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}

	if strings.Contains(body, "Bad login.") {
		return ErrBadLogin
	}
	if strings.Contains(body, "Validation required.") {
		return ErrValidationRequired
	}

	s.authConfirmed = time.Now()
	return nil
}

// FetchFrontPage retrieves the current front page markup.
func (s *Session) FetchFrontPage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/news", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	s.authConfirmed = time.Now()
	return string(page), nil
}

// Hide submits the hide action for one story, waiting the configured
// cooldown first to respect the site's rate limiting.
func (s *Session) Hide(ctx context.Context, storyID, auth string) error {
	timer := time.NewTimer(s.hideCooldown)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	form := url.Values{
		"id":   {storyID},
		"goto": {"news"},
		"auth": {auth},
	}
	if _, err := s.postForm(ctx, "/hide", form); err != nil {
		return fmt.Errorf("hide request: %w", err)
	}
	return nil
}

func (s *Session) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// ExtractAuth pulls the auth token out of a story's hide link. Returns ""
// when the link carries no token, which strongly implies the session has
// silently expired.
func ExtractAuth(hideHref string) string {
	u, err := url.Parse(hideHref)
	if err != nil {
		return ""
	}
	return u.Query().Get("auth")
}
