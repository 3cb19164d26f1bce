package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// =========== Medicine Repository ===========

type medicineRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineRepoPG(pool *pgxpool.Pool) MedicineRepository { return &medicineRepoPG{pool: pool} }

const medicineCols = `id, name, description, price, stock, created_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Stock, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *medicineRepoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medicines (id, name, description, price, stock)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		m.ID, m.Name, m.Description, m.Price, m.Stock).Scan(&m.CreatedAt)
	if isUniqueViolation(err) {
		return ErrMedicineExists
	}
	return err
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE id = $1`, id))
}

func (r *medicineRepoPG) GetByName(ctx context.Context, name string) (*Medicine, error) {
	return scanMedicine(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE name = $1`, name))
}

func (r *medicineRepoPG) Update(ctx context.Context, m *Medicine) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE medicines SET name=$2, description=$3, price=$4, stock=$5
		WHERE id = $1`,
		m.ID, m.Name, m.Description, m.Price, m.Stock)
	if isUniqueViolation(err) {
		return ErrMedicineExists
	}
	if err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

func (r *medicineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return ErrMedicineOrdered
	}
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

func (r *medicineRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*Medicine, int, error) {
	conn := connFor(ctx, r.pool)
	where := ``
	args := []interface{}{}
	if q != "" {
		where = ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, q)
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medicines`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT %s FROM medicines%s ORDER BY name LIMIT $%d OFFSET $%d`,
		medicineCols, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *medicineRepoPG) LowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `SELECT `+medicineCols+` FROM medicines
		WHERE stock < $1 ORDER BY stock, name`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// =========== Cart Repository ===========

type cartRepoPG struct{ pool *pgxpool.Pool }

func NewCartRepoPG(pool *pgxpool.Pool) CartRepository { return &cartRepoPG{pool: pool} }

func (r *cartRepoPG) Add(ctx context.Context, userID, medicineID uuid.UUID, qty int) (*CartItem, error) {
	var it CartItem
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO cart_items (id, user_id, medicine_id, quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, medicine_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, user_id, medicine_id, quantity, added_at`,
		uuid.New(), userID, medicineID, qty).Scan(&it.ID, &it.UserID, &it.MedicineID, &it.Quantity, &it.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return &it, nil
}

func (r *cartRepoPG) Remove(ctx context.Context, userID, medicineID uuid.UUID) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND medicine_id = $2`, userID, medicineID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

const cartLineQuery = `
	SELECT c.medicine_id, m.name, m.price, m.stock, c.quantity
	FROM cart_items c JOIN medicines m ON m.id = c.medicine_id
	WHERE c.user_id = $1
	ORDER BY c.medicine_id`

func collectLines(rows pgx.Rows) ([]CartLine, error) {
	defer rows.Close()
	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.MedicineID, &l.Name, &l.UnitPrice, &l.Stock, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *cartRepoPG) Lines(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, cartLineQuery, userID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

// =========== Order Repository ===========

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository { return &orderRepoPG{pool: pool} }

const orderCols = `id, user_id, medicine_id, quantity, total_price, status, ordered_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.MedicineID, &o.Quantity, &o.TotalPrice, &o.Status, &o.OrderedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepoPG) Checkout(ctx context.Context, userID uuid.UUID, plan PlanFunc) ([]*Order, error) {
	var orders []*Order
	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		conn := connFor(ctx, r.pool)

		// Lock in medicine id order so concurrent checkouts cannot deadlock.
		rows, err := conn.Query(ctx, cartLineQuery+` FOR UPDATE OF c, m`, userID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		lines, err := collectLines(rows)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		planned, err := plan(lines)
		if err != nil {
			return err
		}
		for _, o := range planned {
			o.ID = uuid.New()
			o.UserID = userID
			if err := conn.QueryRow(ctx, `
				INSERT INTO medicine_orders (id, user_id, medicine_id, quantity, total_price, status)
				VALUES ($1,$2,$3,$4,$5,$6)
				RETURNING ordered_at`,
				o.ID, o.UserID, o.MedicineID, o.Quantity, o.TotalPrice, o.Status).Scan(&o.OrderedAt); err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
			tag, err := conn.Exec(ctx, `UPDATE medicines SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
				o.MedicineID, o.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("decrement stock: medicine %s changed under lock", o.MedicineID)
			}
		}
		if _, err := conn.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		orders = planned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepoPG) PlaceDirect(ctx context.Context, userID, medicineID uuid.UUID, qty int) (*Order, error) {
	conn := connFor(ctx, r.pool)
	o := &Order{ID: uuid.New(), UserID: userID, MedicineID: medicineID, Quantity: qty}
	err := conn.QueryRow(ctx, `
		WITH m AS (
			UPDATE medicines SET stock = stock - $4
			WHERE id = $3 AND stock >= $4
			RETURNING id, price
		)
		INSERT INTO medicine_orders (id, user_id, medicine_id, quantity, total_price, status)
		SELECT $1, $2, m.id, $4, m.price * $4, $5 FROM m
		RETURNING total_price, status, ordered_at`,
		o.ID, userID, medicineID, qty, OrderPending).Scan(&o.TotalPrice, &o.Status, &o.OrderedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		m, gerr := scanMedicine(conn.QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE id = $1`, medicineID))
		if gerr != nil {
			return nil, gerr
		}
		return nil, &StockError{Name: m.Name, Available: m.Stock}
	}
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	return o, nil
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+orderCols+` FROM medicine_orders WHERE id = $1`, id))
}

func (r *orderRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Order, int, error) {
	conn := connFor(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medicine_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT %s FROM medicine_orders%s ORDER BY ordered_at DESC LIMIT $%d OFFSET $%d`,
		orderCols, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *orderRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return r.list(ctx, ` WHERE user_id = $1`, []interface{}{userID}, limit, offset)
}

func (r *orderRepoPG) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *orderRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `UPDATE medicine_orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
