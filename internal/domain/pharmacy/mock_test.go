package pharmacy

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/websocket"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/pkg/pagination"
)

// memDB backs the three mock repositories. Its mutex plays the part of the
// checkout transaction.
type memDB struct {
	mu        sync.Mutex
	medicines map[uuid.UUID]*Medicine
	carts     map[uuid.UUID]map[uuid.UUID]*CartItem
	orders    map[uuid.UUID]*Order
}

func newMemDB() *memDB {
	return &memDB{
		medicines: make(map[uuid.UUID]*Medicine),
		carts:     make(map[uuid.UUID]map[uuid.UUID]*CartItem),
		orders:    make(map[uuid.UUID]*Order),
	}
}

// snapshot returns stock per medicine and cart quantities per user.
func (db *memDB) snapshot() (map[uuid.UUID]int, map[uuid.UUID]map[uuid.UUID]int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	stock := make(map[uuid.UUID]int)
	for id, m := range db.medicines {
		stock[id] = m.Stock
	}
	carts := make(map[uuid.UUID]map[uuid.UUID]int)
	for uid, lines := range db.carts {
		carts[uid] = make(map[uuid.UUID]int)
		for mid, it := range lines {
			carts[uid][mid] = it.Quantity
		}
	}
	return stock, carts
}

// -- Mock MedicineRepository --

type mockMedicineRepo struct{ db *memDB }

func (r mockMedicineRepo) Create(_ context.Context, m *Medicine) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.medicines {
		if existing.Name == m.Name {
			return ErrMedicineExists
		}
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	cp := *m
	r.db.medicines[m.ID] = &cp
	return nil
}

func (r mockMedicineRepo) GetByID(_ context.Context, id uuid.UUID) (*Medicine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.medicines[id]
	if !ok {
		return nil, ErrMedicineNotFound
	}
	cp := *m
	return &cp, nil
}

func (r mockMedicineRepo) GetByName(_ context.Context, name string) (*Medicine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.medicines {
		if m.Name == name {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrMedicineNotFound
}

func (r mockMedicineRepo) Update(_ context.Context, m *Medicine) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.medicines[m.ID]; !ok {
		return ErrMedicineNotFound
	}
	cp := *m
	r.db.medicines[m.ID] = &cp
	return nil
}

func (r mockMedicineRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.medicines[id]; !ok {
		return ErrMedicineNotFound
	}
	delete(r.db.medicines, id)
	return nil
}

func (r mockMedicineRepo) List(_ context.Context, q string, limit, offset int) ([]*Medicine, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*Medicine
	for _, m := range r.db.medicines {
		if q == "" || strings.Contains(strings.ToLower(m.Name), strings.ToLower(q)) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(out))
	return out[start:end], len(out), nil
}

func (r mockMedicineRepo) LowStock(_ context.Context, threshold int) ([]*Medicine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*Medicine
	for _, m := range r.db.medicines {
		if m.Stock < threshold {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -- Mock CartRepository --

type mockCartRepo struct{ db *memDB }

func (r mockCartRepo) Add(_ context.Context, userID, medicineID uuid.UUID, qty int) (*CartItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	lines, ok := r.db.carts[userID]
	if !ok {
		lines = make(map[uuid.UUID]*CartItem)
		r.db.carts[userID] = lines
	}
	it, ok := lines[medicineID]
	if !ok {
		it = &CartItem{ID: uuid.New(), UserID: userID, MedicineID: medicineID, AddedAt: time.Now()}
		lines[medicineID] = it
	}
	it.Quantity += qty
	cp := *it
	return &cp, nil
}

func (r mockCartRepo) Remove(_ context.Context, userID, medicineID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.carts[userID], medicineID)
	return nil
}

func (db *memDB) linesLocked(userID uuid.UUID) []CartLine {
	var lines []CartLine
	for mid, it := range db.carts[userID] {
		m := db.medicines[mid]
		lines = append(lines, CartLine{
			MedicineID: mid, Name: m.Name, UnitPrice: m.Price, Stock: m.Stock, Quantity: it.Quantity,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].MedicineID.String() < lines[j].MedicineID.String() })
	return lines
}

func (r mockCartRepo) Lines(_ context.Context, userID uuid.UUID) ([]CartLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.linesLocked(userID), nil
}

// -- Mock OrderRepository --

type mockOrderRepo struct{ db *memDB }

func (r mockOrderRepo) Checkout(_ context.Context, userID uuid.UUID, plan PlanFunc) ([]*Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	orders, err := plan(r.db.linesLocked(userID))
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.ID = uuid.New()
		o.UserID = userID
		o.OrderedAt = time.Now()
		r.db.medicines[o.MedicineID].Stock -= o.Quantity
		cp := *o
		r.db.orders[o.ID] = &cp
	}
	delete(r.db.carts, userID)
	return orders, nil
}

func (r mockOrderRepo) PlaceDirect(_ context.Context, userID, medicineID uuid.UUID, qty int) (*Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.medicines[medicineID]
	if !ok {
		return nil, ErrMedicineNotFound
	}
	if m.Stock < qty {
		return nil, &StockError{Name: m.Name, Available: m.Stock}
	}
	m.Stock -= qty
	o := &Order{ID: uuid.New(), UserID: userID, MedicineID: medicineID, Quantity: qty,
		TotalPrice: lineTotal(m.Price, qty), Status: OrderPending, OrderedAt: time.Now()}
	cp := *o
	r.db.orders[o.ID] = &cp
	return o, nil
}

func (r mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r mockOrderRepo) list(keep func(*Order) bool, limit, offset int) ([]*Order, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*Order
	for _, o := range r.db.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderedAt.After(out[j].OrderedAt) })
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(out))
	return out[start:end], len(out), nil
}

func (r mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return r.list(func(o *Order) bool { return o.UserID == userID }, limit, offset)
}

func (r mockOrderRepo) List(_ context.Context, limit, offset int) ([]*Order, int, error) {
	return r.list(func(*Order) bool { return true }, limit, offset)
}

func (r mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestService() (*Service, *memDB, *recordingPublisher) {
	db := newMemDB()
	svc := NewService(mockMedicineRepo{db}, mockCartRepo{db}, mockOrderRepo{db}, zerolog.Nop())
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)
	return svc, db, pub
}
