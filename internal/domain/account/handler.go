package account

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public; the JWT skipper lets these through.
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	api.PUT("/users/me", h.UpdateAccount)
	api.GET("/users/:id", h.GetUser)
	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.UpdateProfile)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff))
	staff.GET("/users", h.ListUsers)
}

type messageResponse struct {
	Message string `json:"message"`
}

type accountResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

type loginResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrNoInput.Error())
	}
	if _, err := h.svc.Register(c.Request().Context(), req); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Signup successful."})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrNoInput.Error())
	}
	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, loginResponse{
		Message:     "Login successful",
		AccessToken: res.AccessToken,
		UserID:      res.User.ID,
	})
}

// GetUser serves the caller's own account, or any account to staff.
func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if caller, _ := auth.UserUUIDFromContext(ctx); caller != id && !auth.IsStaff(ctx) {
		return apperr.HTTP(ErrNotFound)
	}
	u, err := h.svc.GetUser(ctx, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateAccount(c echo.Context) error {
	userID, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req AccountUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrNoInput.Error())
	}
	u, err := h.svc.UpdateAccount(c.Request().Context(), userID, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, accountResponse{Message: MsgSettingsUpdated, User: u})
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetProfile(c echo.Context) error {
	userID, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	p, err := h.svc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	userID, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.UserID = userID
	if err := h.svc.UpdateProfile(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
