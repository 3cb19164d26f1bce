package pharmacy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/db/dbtest"
)

type pgFixture struct {
	pool *pgxpool.Pool
	svc  *Service
	meds MedicineRepository
	cart CartRepository
	ords OrderRepository
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	pool := dbtest.Pool(t)
	f := &pgFixture{
		pool: pool,
		meds: NewMedicineRepoPG(pool),
		cart: NewCartRepoPG(pool),
		ords: NewOrderRepoPG(pool),
	}
	f.svc = NewService(f.meds, f.cart, f.ords, zerolog.Nop())
	return f
}

func (f *pgFixture) user(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := f.pool.Exec(context.Background(),
		`INSERT INTO users (id, email, full_name, password_hash) VALUES ($1, $2, 'Test User', 'x')`,
		id, id.String()+"@example.com")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func (f *pgFixture) medicine(t *testing.T, name string, price float64, stock int) *Medicine {
	t.Helper()
	m := &Medicine{Name: name, Price: price, Stock: stock}
	if err := f.meds.Create(context.Background(), m); err != nil {
		t.Fatalf("create medicine %s: %v", name, err)
	}
	return m
}

func (f *pgFixture) addToCart(t *testing.T, userID, medicineID uuid.UUID, qty int) {
	t.Helper()
	if _, err := f.cart.Add(context.Background(), userID, medicineID, qty); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func (f *pgFixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	m, err := f.meds.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	return m.Stock
}

func TestCheckoutPG_ShortLineChangesNothing(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	uid := f.user(t)
	aspirin := f.medicine(t, "Aspirin", 2.5, 5)
	ibuprofen := f.medicine(t, "Ibuprofen", 4, 3)
	f.addToCart(t, uid, aspirin.ID, 2)
	f.addToCart(t, uid, ibuprofen.ID, 4)

	_, err := f.svc.Checkout(ctx, uid)
	var se *StockError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StockError, got %v", err)
	}
	if se.Name != "Ibuprofen" || se.Available != 3 {
		t.Errorf("unexpected stock error %+v", se)
	}

	if got := f.stock(t, aspirin.ID); got != 5 {
		t.Errorf("aspirin stock = %d, want 5", got)
	}
	if got := f.stock(t, ibuprofen.ID); got != 3 {
		t.Errorf("ibuprofen stock = %d, want 3", got)
	}
	lines, err := f.cart.Lines(ctx, uid)
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("cart lines = %d, want 2", len(lines))
	}
	if _, total, _ := f.ords.ListByUser(ctx, uid, 10, 0); total != 0 {
		t.Errorf("orders = %d, want 0", total)
	}
}

func TestCheckoutPG_Totals(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	uid := f.user(t)
	paracetamol := f.medicine(t, "Paracetamol", 2.35, 10)
	cetirizine := f.medicine(t, "Cetirizine", 1.1, 10)
	f.addToCart(t, uid, paracetamol.ID, 3)
	f.addToCart(t, uid, cetirizine.ID, 7)

	orders, err := f.svc.Checkout(ctx, uid)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}

	want := map[uuid.UUID]float64{paracetamol.ID: 7.05, cetirizine.ID: 7.7}
	stored, _, err := f.ords.ListByUser(ctx, uid, 10, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	for _, o := range stored {
		if o.TotalPrice != want[o.MedicineID] {
			t.Errorf("order for %s: total %.2f, want %.2f", o.MedicineID, o.TotalPrice, want[o.MedicineID])
		}
		if o.Status != OrderPending {
			t.Errorf("status = %q", o.Status)
		}
	}
	if got := f.stock(t, paracetamol.ID); got != 7 {
		t.Errorf("paracetamol stock = %d, want 7", got)
	}
	if lines, _ := f.cart.Lines(ctx, uid); len(lines) != 0 {
		t.Errorf("cart not cleared: %d lines", len(lines))
	}
}

func TestCheckoutPG_ConcurrentNeverOversells(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	m := f.medicine(t, "Amoxicillin", 3, 3)

	const buyers = 6
	users := make([]uuid.UUID, buyers)
	for i := range users {
		users[i] = f.user(t)
		f.addToCart(t, users[i], m.ID, 1)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		short   int
		failure []error
	)
	for _, uid := range users {
		wg.Add(1)
		go func(uid uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, uid)
			mu.Lock()
			defer mu.Unlock()
			var se *StockError
			switch {
			case err == nil:
				placed++
			case errors.As(err, &se):
				short++
			default:
				failure = append(failure, err)
			}
		}(uid)
	}
	wg.Wait()

	if len(failure) > 0 {
		t.Fatalf("unexpected errors: %v", failure)
	}
	if placed != 3 || short != buyers-3 {
		t.Errorf("placed %d, short %d; want 3 and %d", placed, short, buyers-3)
	}
	if got := f.stock(t, m.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
	_, total, err := f.ords.List(ctx, 100, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if total != 3 {
		t.Errorf("orders = %d, want 3", total)
	}
}

func TestPlaceDirectPG(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	uid := f.user(t)
	m := f.medicine(t, "Metformin", 1.25, 2)

	_, err := f.ords.PlaceDirect(ctx, uid, m.ID, 3)
	var se *StockError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StockError, got %v", err)
	}
	if se.Name != "Metformin" || se.Available != 2 {
		t.Errorf("unexpected stock error %+v", se)
	}
	if got := f.stock(t, m.ID); got != 2 {
		t.Errorf("stock after short order = %d, want 2", got)
	}

	o, err := f.ords.PlaceDirect(ctx, uid, m.ID, 2)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if o.TotalPrice != 2.5 || o.Quantity != 2 || o.Status != OrderPending {
		t.Errorf("unexpected order %+v", o)
	}
	if got := f.stock(t, m.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}

	if _, err := f.ords.PlaceDirect(ctx, uid, uuid.New(), 1); !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("unknown medicine: expected ErrMedicineNotFound, got %v", err)
	}
}
