// Package accountapi is an HTTP client for the account endpoints of the
// JSON API. The portal uses it when accounts live in another instance.
package accountapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("account api: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	DOB      string `json:"dob"`
	Gender   string `json:"gender"`
}

// AccountUpdate is the body of PUT /users/me.
type AccountUpdate struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	DOB      string `json:"dob"`
	Gender   string `json:"gender"`
}

type LoginResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
}

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	IsActive bool      `json:"is_active"`
	IsStaff  bool      `json:"is_staff"`
	IsAdmin  bool      `json:"is_admin"`
}

type Profile struct {
	UserID             uuid.UUID `json:"user_id"`
	PhoneNumber        string    `json:"phone_number"`
	DateOfBirth        string    `json:"date_of_birth"`
	Gender             string    `json:"gender"`
	BloodGroup         string    `json:"blood_group"`
	Address            string    `json:"address"`
	Height             *float64  `json:"height"`
	Weight             *float64  `json:"weight"`
	Allergies          string    `json:"allergies"`
	MedicalConditions  string    `json:"medical_conditions"`
	CurrentMedications string    `json:"current_medications"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Register creates a patient account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "", req, nil)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// User fetches the account for id as the holder of token.
func (c *Client) User(ctx context.Context, token string, id uuid.UUID) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/"+id.String(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAccount replaces the token holder's account settings and returns
// the updated account.
func (c *Client) UpdateAccount(ctx context.Context, token string, req AccountUpdate) (*User, error) {
	var out struct {
		Message string `json:"message"`
		User    User   `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/users/me", token, req, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Profile fetches the token holder's profile.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
