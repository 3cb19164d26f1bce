package booking

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/pkg/pagination"
)

const (
	MsgCancelled   = "Appointment cancelled successfully."
	MsgRescheduled = "Your appointment has been rescheduled successfully."
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.MyAppointments)
	api.POST("/appointments", h.Book)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id/reschedule", h.Reschedule)
	api.DELETE("/appointments/:id", h.Cancel)

	staff := api.Group("/admin", auth.RequireRole(auth.RoleStaff))
	staff.GET("/appointments", h.List)
	staff.PUT("/appointments/:id", h.Update)
	staff.DELETE("/appointments/:id", h.Cancel)
}

type appointmentResponse struct {
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) MyAppointments(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	sched, err := h.svc.MyAppointments(c.Request().Context(), uid)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

// Book stages and pays for an appointment in one request.
func (h *Handler) Book(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No input data provided")
	}
	a, err := h.svc.Book(c.Request().Context(), uid, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, appointmentResponse{Message: MsgPaymentSuccess, Appointment: a})
}

func (h *Handler) Get(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), uid, auth.IsStaff(c.Request().Context()), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Reschedule(c.Request().Context(), uid, id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, appointmentResponse{Message: MsgRescheduled, Appointment: a})
}

// Cancel serves both the owner route and the staff route; the service
// decides who may delete.
func (h *Handler) Cancel(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Cancel(c.Request().Context(), uid, auth.IsStaff(c.Request().Context()), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, appointmentResponse{Message: MsgCancelled})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var u AppointmentUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), id, u)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}
