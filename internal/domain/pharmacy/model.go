package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

var validOrderStatuses = map[string]bool{
	OrderPending: true, OrderConfirmed: true, OrderShipped: true,
	OrderDelivered: true, OrderCancelled: true,
}

type Medicine struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

type CartItem struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	MedicineID uuid.UUID `json:"medicine_id"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"added_at"`
}

// CartLine is a cart item joined with its medicine's current name, price
// and stock.
type CartLine struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Name       string    `json:"name"`
	UnitPrice  float64   `json:"unit_price"`
	Stock      int       `json:"-"`
	Quantity   int       `json:"quantity"`
	Subtotal   float64   `json:"subtotal"`
}

type Cart struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}

type Order struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	MedicineID uuid.UUID `json:"medicine_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	OrderedAt  time.Time `json:"ordered_at"`
}

// CartRequest adds a medicine to the cart. A zero quantity means one.
type CartRequest struct {
	MedicineID uuid.UUID `json:"medicine_id" form:"medicine_id"`
	Quantity   int       `json:"quantity" form:"quantity"`
}

// OrderRequest orders a single medicine without the cart. Any total sent by
// the client is ignored.
type OrderRequest struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Quantity   int       `json:"quantity"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}
