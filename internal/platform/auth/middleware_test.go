package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func newIssuer() *TokenIssuer {
	return NewTokenIssuer(testSigningKey, "curenet", time.Hour)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(JWTConfig{Issuer: newIssuer()})(okHandler)(c)
	if err == nil {
		t.Fatal("expected error for missing header")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := JWTMiddleware(JWTConfig{Issuer: newIssuer()})(okHandler)(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %v", err)
			}
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	issuer := newIssuer()
	uid := uuid.New()
	tok, err := issuer.Issue(uid, "ravi@example.com", []string{RolePatient})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID, gotEmail string
	var gotRoles []string
	h := JWTMiddleware(JWTConfig{Issuer: issuer})(func(c echo.Context) error {
		ctx := c.Request().Context()
		gotID = UserIDFromContext(ctx)
		gotEmail = EmailFromContext(ctx)
		gotRoles = RolesFromContext(ctx)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != uid.String() || gotEmail != "ravi@example.com" {
		t.Errorf("unexpected identity %q %q", gotID, gotEmail)
	}
	if len(gotRoles) != 1 || gotRoles[0] != RolePatient {
		t.Errorf("unexpected roles %v", gotRoles)
	}
}

func TestJWTMiddleware_QueryToken(t *testing.T) {
	issuer := newIssuer()
	tok, err := issuer.Issue(uuid.New(), "", []string{RolePatient})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	run := func(allow bool) error {
		req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+tok, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		return JWTMiddleware(JWTConfig{Issuer: issuer, AllowQueryToken: allow})(okHandler)(c)
	}

	if err := run(true); err != nil {
		t.Errorf("expected query token to be accepted, got %v", err)
	}
	if err := run(false); err == nil {
		t.Error("expected query token to be ignored when not allowed")
	}
}

func TestUserUUIDFromContext(t *testing.T) {
	uid := uuid.New()
	ctx := WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), uid.String(), "", nil)
	got, ok := UserUUIDFromContext(ctx)
	if !ok || got != uid {
		t.Errorf("expected %s, got %s (ok=%v)", uid, got, ok)
	}

	if _, ok := UserUUIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Error("expected no identity on a bare context")
	}
}
