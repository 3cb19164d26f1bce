package pharmacy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/pkg/pagination"
)

func AddedMessage(name string) string { return fmt.Sprintf("%s added to your cart!", name) }

func RemovedMessage(name string) string {
	if name == "" {
		return "Item removed from your cart!"
	}
	return fmt.Sprintf("%s removed from your cart!", name)
}

// HTTPError maps pharmacy errors to echo errors. Stock shortages are
// client errors.
func HTTPError(err error) error {
	var se *StockError
	if errors.As(err, &se) {
		return echo.NewHTTPError(http.StatusBadRequest, se.Error())
	}
	return apperr.HTTP(err)
}

type Handler struct {
	svc      *Service
	importer *Importer
}

func NewHandler(svc *Service, importer *Importer) *Handler {
	return &Handler{svc: svc, importer: importer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medicines", h.SearchMedicines)
	api.GET("/medicines/:id", h.GetMedicine)

	api.GET("/cart", h.ViewCart)
	api.POST("/cart/items", h.AddToCart)
	api.DELETE("/cart/items/:medicine_id", h.RemoveFromCart)
	api.POST("/cart/checkout", h.Checkout)

	api.GET("/orders", h.MyOrders)
	api.POST("/orders", h.PlaceOrder)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff))
	staff.POST("/medicines", h.CreateMedicine)
	staff.PUT("/medicines/:id", h.UpdateMedicine)
	staff.DELETE("/medicines/:id", h.DeleteMedicine)
	staff.POST("/medicines/import", h.ImportMedicines)
	staff.GET("/admin/orders", h.ListOrders)
	staff.PATCH("/admin/orders/:id/status", h.UpdateOrderStatus)
}

type messageResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func userID(c echo.Context) (uuid.UUID, error) {
	id, ok := auth.UserUUIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Medicines --

func (h *Handler) SearchMedicines(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchMedicines(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMedicine(c.Request().Context(), &m); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, &m)
}

func (h *Handler) UpdateMedicine(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMedicine(c.Request().Context(), &m); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{
		Message: fmt.Sprintf("%s has been updated successfully!", m.Name),
		Data:    &m,
	})
}

func (h *Handler) DeleteMedicine(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedicine(c.Request().Context(), id); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ImportMedicines(c echo.Context) error {
	res, err := h.importer.Import(c.Request().Context(), c.QueryParam("drug_name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Error fetching medicines: "+err.Error())
	}
	return c.JSON(http.StatusOK, messageResponse{Message: MsgImported, Data: res})
}

// -- Cart --

func (h *Handler) ViewCart(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	cart, err := h.svc.ViewCart(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *Handler) AddToCart(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req CartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, item, err := h.svc.AddToCart(c.Request().Context(), uid, req)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: AddedMessage(m.Name), Data: item})
}

func (h *Handler) RemoveFromCart(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	mid, err := pathID(c, "medicine_id")
	if err != nil {
		return err
	}
	m, err := h.svc.RemoveFromCart(c.Request().Context(), uid, mid)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: RemovedMessage(m.Name)})
}

func (h *Handler) Checkout(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orders, err := h.svc.Checkout(c.Request().Context(), uid)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: MsgOrderPlaced, Data: orders})
}

// -- Orders --

func (h *Handler) PlaceOrder(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.PlaceOrder(c.Request().Context(), uid, req)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: MsgOrderPlaced, Data: o})
}

func (h *Handler) MyOrders(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.MyOrders(c.Request().Context(), uid, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOrders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req StatusUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.UpdateOrderStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}
