package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type MedicineRepository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	GetByName(ctx context.Context, name string) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List filters by a case-insensitive name substring when q is set.
	List(ctx context.Context, q string, limit, offset int) ([]*Medicine, int, error)
	LowStock(ctx context.Context, threshold int) ([]*Medicine, error)
}

type CartRepository interface {
	// Add creates the (user, medicine) line or increments its quantity.
	Add(ctx context.Context, userID, medicineID uuid.UUID, qty int) (*CartItem, error)
	// Remove deletes the line. A missing line is not an error.
	Remove(ctx context.Context, userID, medicineID uuid.UUID) error
	Lines(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
}

// PlanFunc turns locked cart lines into the orders to insert. It must not
// write anything; returning an error aborts the checkout.
type PlanFunc func(lines []CartLine) ([]*Order, error)

type OrderRepository interface {
	// Checkout locks userID's cart lines and their medicines, passes them to
	// plan, and then inserts the planned orders, decrements stock and
	// clears the cart. All of it commits together or not at all.
	Checkout(ctx context.Context, userID uuid.UUID, plan PlanFunc) ([]*Order, error)
	// PlaceDirect decrements stock and records the order in one statement.
	// It returns a *StockError when stock is short.
	PlaceDirect(ctx context.Context, userID, medicineID uuid.UUID, qty int) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error)
	List(ctx context.Context, limit, offset int) ([]*Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
