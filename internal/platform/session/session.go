// Package session implements cookie sessions for the portal on top of a
// kv.Store. The cookie only carries a random id; everything else lives in the
// store.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/kv"
)

const contextKey = "session"

// Session is the per-browser state of the portal.
type Session struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id,omitempty"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"full_name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	// APIToken is the bearer token returned by a remote account backend.
	APIToken string `json:"api_token,omitempty"`
	// BookingToken names the booking currently awaiting payment.
	BookingToken string    `json:"booking_token,omitempty"`
	Flashes      []string  `json:"flashes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// PopFlashes returns and clears the pending flash messages.
func (s *Session) PopFlashes() []string {
	out := s.Flashes
	s.Flashes = nil
	if out == nil {
		out = []string{}
	}
	return out
}

type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type Manager struct {
	store kv.Store
	cfg   Config
}

func NewManager(store kv.Store, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "curenet_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &Manager{store: store, cfg: cfg}
}

func storeKey(id string) string {
	return "session:" + id
}

// Middleware loads the session named by the cookie, or starts a fresh one.
// Logged-in sessions also populate the auth identity on the request context,
// so auth.RequireRole works the same on both surfaces.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := m.load(c)
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			c.Set(contextKey, s)
			if s.Authenticated() {
				c.SetRequest(c.Request().WithContext(
					auth.WithIdentity(c.Request().Context(), s.UserID, s.Email, s.Roles)))
			}
			return next(c)
		}
	}
}

func (m *Manager) load(c echo.Context) (*Session, error) {
	if cookie, err := c.Cookie(m.cfg.CookieName); err == nil && cookie.Value != "" {
		var s Session
		ok, err := m.store.Get(c.Request().Context(), storeKey(cookie.Value), &s)
		if err != nil {
			return nil, err
		}
		if ok && s.ID == cookie.Value {
			return &s, nil
		}
	}
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}, nil
}

// FromContext returns the session loaded by Middleware, or nil.
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

// Save persists s and (re)sets the cookie. It must run before the response
// body is written.
func (m *Manager) Save(c echo.Context, s *Session) error {
	if err := m.store.Set(c.Request().Context(), storeKey(s.ID), s, m.cfg.TTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.SetCookie(m.cookie(s.ID, int(m.cfg.TTL.Seconds())))
	return nil
}

// Login rotates the session id and binds it to the user. Pending flashes and
// the staged booking carry over.
func (m *Manager) Login(c echo.Context, s *Session, userID, email, fullName, apiToken string, roles []string) error {
	if err := m.store.Delete(c.Request().Context(), storeKey(s.ID)); err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	s.ID = uuid.NewString()
	s.UserID = userID
	s.Email = email
	s.FullName = fullName
	s.Roles = roles
	s.APIToken = apiToken
	c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), userID, email, roles)))
	return m.Save(c, s)
}

// Destroy removes the session from the store and expires the cookie.
func (m *Manager) Destroy(c echo.Context, s *Session) error {
	if err := m.store.Delete(c.Request().Context(), storeKey(s.ID)); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	c.SetCookie(m.cookie("", -1))
	c.Set(contextKey, &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()})
	c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), "", "", nil)))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequireLogin rejects anonymous sessions with 401.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s := FromContext(c); s == nil || !s.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "Please log in to continue.")
			}
			return next(c)
		}
	}
}
