package pharmacy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/websocket"
)

const MsgOrderPlaced = "Your order has been placed successfully!"

var (
	ErrMedicineNotFound = apperr.NotFound("Medicine not found")
	ErrMedicineExists   = apperr.Conflict("A medicine with this name already exists.")
	ErrMedicineOrdered  = apperr.Conflict("This medicine has orders and cannot be deleted.")
	ErrOrderNotFound    = apperr.NotFound("Order not found")
	ErrEmptyCart        = apperr.Invalid("Your cart is empty!")
	ErrQuantity         = apperr.Invalid("Quantity must be at least 1.")
	ErrMedicineName     = apperr.Invalid("name is required")
	ErrPrice            = apperr.Invalid("Price must be greater than zero.")
	ErrStock            = apperr.Invalid("Stock cannot be negative.")
)

// StockError reports a line whose quantity exceeds the medicine's stock.
type StockError struct {
	Name      string
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d", e.Name, e.Available)
}

type Service struct {
	medicines MedicineRepository
	carts     CartRepository
	orders    OrderRepository
	events    websocket.EventPublisher
	logger    zerolog.Logger
}

func NewService(medicines MedicineRepository, carts CartRepository, orders OrderRepository, logger zerolog.Logger) *Service {
	return &Service{
		medicines: medicines,
		carts:     carts,
		orders:    orders,
		logger:    logger.With().Str("component", "pharmacy").Logger(),
	}
}

// SetPublisher sends order events to pub.
func (s *Service) SetPublisher(pub websocket.EventPublisher) {
	s.events = pub
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// lineTotal is the only place an order total is computed.
func lineTotal(price float64, qty int) float64 {
	return roundCents(price * float64(qty))
}

// -- Medicines --

func validateMedicine(m *Medicine) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	switch {
	case m.Name == "":
		return ErrMedicineName
	case m.Price <= 0:
		return ErrPrice
	case m.Stock < 0:
		return ErrStock
	}
	m.Price = roundCents(m.Price)
	return nil
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if err := validateMedicine(m); err != nil {
		return err
	}
	return s.medicines.Create(ctx, m)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) UpdateMedicine(ctx context.Context, m *Medicine) error {
	if err := validateMedicine(m); err != nil {
		return err
	}
	return s.medicines.Update(ctx, m)
}

func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	return s.medicines.Delete(ctx, id)
}

func (s *Service) SearchMedicines(ctx context.Context, q string, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.List(ctx, strings.TrimSpace(q), limit, offset)
}

// -- Cart --

// AddToCart adds qty of a medicine to userID's cart and returns the
// medicine. A zero quantity adds one.
func (s *Service) AddToCart(ctx context.Context, userID uuid.UUID, req CartRequest) (*Medicine, *CartItem, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, nil, ErrQuantity
	}
	m, err := s.medicines.GetByID(ctx, req.MedicineID)
	if err != nil {
		return nil, nil, err
	}
	it, err := s.carts.Add(ctx, userID, m.ID, req.Quantity)
	if err != nil {
		return nil, nil, err
	}
	return m, it, nil
}

// RemoveFromCart drops a medicine from the cart. It returns the medicine so
// callers can name it; a medicine that no longer exists is still removed.
func (s *Service) RemoveFromCart(ctx context.Context, userID, medicineID uuid.UUID) (*Medicine, error) {
	if err := s.carts.Remove(ctx, userID, medicineID); err != nil {
		return nil, err
	}
	m, err := s.medicines.GetByID(ctx, medicineID)
	if err != nil {
		return &Medicine{ID: medicineID}, nil
	}
	return m, nil
}

func (s *Service) ViewCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart := &Cart{Lines: make([]CartLine, 0, len(lines))}
	for _, l := range lines {
		l.Subtotal = lineTotal(l.UnitPrice, l.Quantity)
		cart.Total += l.Subtotal
		cart.Lines = append(cart.Lines, l)
	}
	cart.Total = roundCents(cart.Total)
	return cart, nil
}

// PlanCheckout decides the orders for a set of locked cart lines. It fails
// on an empty cart or on the first line that exceeds its stock, in which
// case nothing may be written.
func PlanCheckout(lines []CartLine) ([]*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	orders := make([]*Order, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > l.Stock {
			return nil, &StockError{Name: l.Name, Available: l.Stock}
		}
		orders = append(orders, &Order{
			MedicineID: l.MedicineID,
			Quantity:   l.Quantity,
			TotalPrice: lineTotal(l.UnitPrice, l.Quantity),
			Status:     OrderPending,
		})
	}
	return orders, nil
}

// Checkout turns userID's whole cart into orders.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	orders, err := s.orders.Checkout(ctx, userID, PlanCheckout)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		s.publish(ctx, o)
	}
	s.logger.Info().Str("user_id", userID.String()).Int("orders", len(orders)).Msg("checkout completed")
	return orders, nil
}

// PlaceOrder orders one medicine directly. The total is always computed
// from the stored price.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, req OrderRequest) (*Order, error) {
	if req.Quantity < 1 {
		return nil, ErrQuantity
	}
	if req.MedicineID == uuid.Nil {
		return nil, apperr.Invalid("medicine_id is required")
	}
	o, err := s.orders.PlaceDirect(ctx, userID, req.MedicineID, req.Quantity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, o)
	return o, nil
}

func (s *Service) MyOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return s.orders.List(ctx, limit, offset)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validOrderStatuses[status] {
		return nil, apperr.Invalidf("invalid status: %s", status)
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

func (s *Service) publish(ctx context.Context, o *Order) {
	if s.events == nil {
		return
	}
	evt := websocket.NewUserEvent(o.UserID, "order.placed", "medicine_order", o.ID, o)
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Msg("publish order event")
	}
}

// LowStock returns medicines whose stock is below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	return s.medicines.LowStock(ctx, threshold)
}
