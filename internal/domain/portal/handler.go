package portal

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/account"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/booking"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/pharmacy"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/session"
)

const (
	MsgSignedUp     = "Signup successful. Please log in."
	MsgLoggedIn     = "Login successful"
	MsgLoggedOut    = "You have been logged out successfully."
	MsgStaged       = "Appointment details saved. Please complete the payment."
	MsgDiscarded    = "Your booking has been discarded."
	MsgCancelled    = "Your appointment has been cancelled successfully."
	msgNoInput      = "No input data provided"
	msgLoginNeeded  = "Please log in to continue."
	msgInvalidField = "invalid "
)

// Bookings is the part of the booking service the portal drives.
type Bookings interface {
	Stage(ctx context.Context, patientID uuid.UUID, form booking.BookingForm) (*booking.Draft, error)
	Confirm(ctx context.Context, patientID uuid.UUID, token string, pay booking.PaymentForm) (*booking.Appointment, error)
	Discard(ctx context.Context, patientID uuid.UUID, token string) error
	MyAppointments(ctx context.Context, patientID uuid.UUID) (*booking.Schedule, error)
	Reschedule(ctx context.Context, patientID, id uuid.UUID, req booking.RescheduleRequest) (*booking.Appointment, error)
	Cancel(ctx context.Context, callerID uuid.UUID, staff bool, id uuid.UUID) error
}

// Pharmacy is the part of the pharmacy service the portal drives.
type Pharmacy interface {
	AddToCart(ctx context.Context, userID uuid.UUID, req pharmacy.CartRequest) (*pharmacy.Medicine, *pharmacy.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, medicineID uuid.UUID) (*pharmacy.Medicine, error)
	ViewCart(ctx context.Context, userID uuid.UUID) (*pharmacy.Cart, error)
	Checkout(ctx context.Context, userID uuid.UUID) ([]*pharmacy.Order, error)
}

// Handler serves the session-cookie surface. Every mutation stores its
// user-facing message as a flash and also returns it.
type Handler struct {
	accounts AccountBackend
	bookings Bookings
	pharmacy Pharmacy
	sessions *session.Manager
	logger   zerolog.Logger
}

func NewHandler(accounts AccountBackend, bookings Bookings, pharmacy Pharmacy, sessions *session.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		bookings: bookings,
		pharmacy: pharmacy,
		sessions: sessions,
		logger:   logger.With().Str("component", "portal").Logger(),
	}
}

// RegisterRoutes mounts the portal on g. mw runs after the session is
// loaded and sees the signed-in user's identity.
func (h *Handler) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.Use(h.sessions.Middleware())
	g.Use(mw...)

	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/messages", h.Messages)

	in := g.Group("", session.RequireLogin())
	in.GET("/profile", h.Profile)
	in.POST("/settings", h.Settings)

	in.POST("/appointments/book", h.Book)
	in.POST("/appointments/payment", h.Payment)
	in.POST("/appointments/discard", h.Discard)
	in.GET("/appointments", h.Appointments)
	in.POST("/appointments/:id/reschedule", h.Reschedule)
	in.POST("/appointments/:id/cancel", h.Cancel)

	in.GET("/cart", h.ViewCart)
	in.POST("/cart/add/:medicine_id", h.AddToCart)
	in.POST("/cart/remove/:medicine_id", h.RemoveFromCart)
	in.POST("/cart/checkout", h.Checkout)
}

type flashResponse struct {
	Message      string      `json:"message"`
	BookingToken string      `json:"booking_token,omitempty"`
	State        string      `json:"state,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// reply flashes resp.Message, or flashes instead when given, saves the
// session and writes resp.
func (h *Handler) reply(c echo.Context, s *session.Session, status int, resp flashResponse, flashes ...string) error {
	if len(flashes) == 0 {
		flashes = []string{resp.Message}
	}
	for _, f := range flashes {
		s.AddFlash(f)
	}
	if err := h.sessions.Save(c, s); err != nil {
		return err
	}
	return c.JSON(status, resp)
}

// fail flashes the user-facing message of a client error and returns it.
// Server errors pass through without a flash.
func (h *Handler) fail(c echo.Context, s *session.Session, err error) error {
	he, ok := pharmacy.HTTPError(err).(*echo.HTTPError)
	if !ok || he.Code >= http.StatusInternalServerError {
		return err
	}
	if msg, ok := he.Message.(string); ok {
		s.AddFlash(msg)
	}
	if serr := h.sessions.Save(c, s); serr != nil {
		h.logger.Error().Err(serr).Msg("save session after failure")
	}
	return he
}

func current(c echo.Context) (*session.Session, uuid.UUID, error) {
	s := session.FromContext(c)
	if s == nil || !s.Authenticated() {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, msgLoginNeeded)
	}
	uid, err := uuid.Parse(s.UserID)
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, msgLoginNeeded)
	}
	return s, uid, nil
}

func (h *Handler) pathID(c echo.Context, s *session.Session, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, h.fail(c, s, apperr.Invalid(msgInvalidField+name))
	}
	return id, nil
}

// -- Accounts --

func (h *Handler) Signup(c echo.Context) error {
	s := session.FromContext(c)
	var form account.SignupForm
	if err := c.Bind(&form); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	if err := h.accounts.Signup(c.Request().Context(), form); err != nil {
		return h.fail(c, s, err)
	}
	return h.reply(c, s, http.StatusCreated, flashResponse{Message: MsgSignedUp})
}

func (h *Handler) Login(c echo.Context) error {
	s := session.FromContext(c)
	var req account.LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	acct, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, s, err)
	}
	s.AddFlash(MsgLoggedIn)
	if err := h.sessions.Login(c, s, acct.UserID.String(), acct.Email, acct.FullName, acct.APIToken, acct.Roles); err != nil {
		return err
	}
	h.logger.Info().Str("user_id", acct.UserID.String()).Msg("portal login")
	return c.JSON(http.StatusOK, flashResponse{Message: MsgLoggedIn})
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.sessions.Destroy(c, session.FromContext(c)); err != nil {
		return err
	}
	return h.reply(c, session.FromContext(c), http.StatusOK, flashResponse{Message: MsgLoggedOut})
}

func (h *Handler) Messages(c echo.Context) error {
	s := session.FromContext(c)
	msgs := s.PopFlashes()
	if err := h.sessions.Save(c, s); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"messages": msgs})
}

func (h *Handler) Profile(c echo.Context) error {
	s, _, err := current(c)
	if err != nil {
		return err
	}
	p, err := h.accounts.Profile(c.Request().Context(), s)
	if err != nil {
		return h.fail(c, s, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Settings updates the account and keeps the session's name and email in
// step with it.
func (h *Handler) Settings(c echo.Context) error {
	s, _, err := current(c)
	if err != nil {
		return err
	}
	var req account.AccountUpdate
	if err := c.Bind(&req); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	acct, err := h.accounts.UpdateAccount(c.Request().Context(), s, req)
	if err != nil {
		return h.fail(c, s, err)
	}
	s.Email = acct.Email
	s.FullName = acct.FullName
	return h.reply(c, s, http.StatusOK, flashResponse{Message: account.MsgSettingsUpdated, Data: acct})
}

// -- Booking workflow --

func (h *Handler) Book(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	var form booking.BookingForm
	if err := c.Bind(&form); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	d, err := h.bookings.Stage(c.Request().Context(), uid, form)
	if err != nil {
		return h.fail(c, s, err)
	}
	// A new booking replaces any earlier one still awaiting payment.
	if s.BookingToken != "" && s.BookingToken != d.Token {
		if derr := h.bookings.Discard(c.Request().Context(), uid, s.BookingToken); derr != nil {
			h.logger.Warn().Err(derr).Msg("discard replaced booking")
		}
	}
	s.BookingToken = d.Token
	return h.reply(c, s, http.StatusCreated, flashResponse{
		Message:      MsgStaged,
		BookingToken: d.Token,
		State:        string(d.State),
	})
}

func (h *Handler) Payment(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	var pay booking.PaymentForm
	if err := c.Bind(&pay); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	token := pay.BookingToken
	if token == "" {
		token = s.BookingToken
	}
	a, err := h.bookings.Confirm(c.Request().Context(), uid, token, pay)
	if err != nil {
		return h.fail(c, s, err)
	}
	if s.BookingToken == token {
		s.BookingToken = ""
	}

	flashes := []string{booking.MsgPaymentSuccess}
	if !a.IsPaid {
		flashes = []string{booking.MsgCashSelected, booking.MsgPaymentSuccess}
	}
	return h.reply(c, s, http.StatusCreated, flashResponse{
		Message: booking.MsgPaymentSuccess,
		State:   string(booking.StateConfirmed),
		Data:    a,
	}, flashes...)
}

func (h *Handler) Discard(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	token := c.FormValue("booking_token")
	if token == "" {
		token = s.BookingToken
	}
	if err := h.bookings.Discard(c.Request().Context(), uid, token); err != nil {
		return h.fail(c, s, err)
	}
	if s.BookingToken == token {
		s.BookingToken = ""
	}
	return h.reply(c, s, http.StatusOK, flashResponse{Message: MsgDiscarded, State: string(booking.StateCancelled)})
}

func (h *Handler) Appointments(c echo.Context) error {
	_, uid, err := current(c)
	if err != nil {
		return err
	}
	sched, err := h.bookings.MyAppointments(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) Reschedule(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	id, err := h.pathID(c, s, "id")
	if err != nil {
		return err
	}
	var req booking.RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	a, err := h.bookings.Reschedule(c.Request().Context(), uid, id, req)
	if err != nil {
		return h.fail(c, s, err)
	}
	return h.reply(c, s, http.StatusOK, flashResponse{Message: booking.MsgRescheduled, Data: a})
}

func (h *Handler) Cancel(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	id, err := h.pathID(c, s, "id")
	if err != nil {
		return err
	}
	if err := h.bookings.Cancel(c.Request().Context(), uid, auth.IsStaff(c.Request().Context()), id); err != nil {
		return h.fail(c, s, err)
	}
	return h.reply(c, s, http.StatusOK, flashResponse{Message: MsgCancelled})
}

// -- Cart --

func (h *Handler) ViewCart(c echo.Context) error {
	_, uid, err := current(c)
	if err != nil {
		return err
	}
	cart, err := h.pharmacy.ViewCart(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *Handler) AddToCart(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	mid, err := h.pathID(c, s, "medicine_id")
	if err != nil {
		return err
	}
	var req pharmacy.CartRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, s, apperr.Invalid(msgNoInput))
	}
	req.MedicineID = mid
	m, item, err := h.pharmacy.AddToCart(c.Request().Context(), uid, req)
	if err != nil {
		return h.fail(c, s, err)
	}
	return h.reply(c, s, http.StatusOK, flashResponse{Message: pharmacy.AddedMessage(m.Name), Data: item})
}

func (h *Handler) RemoveFromCart(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	mid, err := h.pathID(c, s, "medicine_id")
	if err != nil {
		return err
	}
	m, err := h.pharmacy.RemoveFromCart(c.Request().Context(), uid, mid)
	if err != nil {
		return h.fail(c, s, err)
	}
	return h.reply(c, s, http.StatusOK, flashResponse{Message: pharmacy.RemovedMessage(m.Name)})
}

func (h *Handler) Checkout(c echo.Context) error {
	s, uid, err := current(c)
	if err != nil {
		return err
	}
	orders, err := h.pharmacy.Checkout(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, s, err)
	}
	return h.reply(c, s, http.StatusCreated, flashResponse{Message: pharmacy.MsgOrderPlaced, Data: orders})
}
