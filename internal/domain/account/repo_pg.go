package account

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

const pgUniqueViolation = "23505"

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, full_name, password_hash, dob, gender,
	is_active, is_staff, is_admin, date_joined`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.DOB, &u.Gender,
		&u.IsActive, &u.IsStaff, &u.IsAdmin, &u.DateJoined)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, dob, gender, is_active, is_staff, is_admin)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING date_joined`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.DOB, u.Gender,
		u.IsActive, u.IsStaff, u.IsAdmin).Scan(&u.DateJoined)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email=$2, full_name=$3, dob=$4, gender=$5
		WHERE id = $1`,
		u.ID, u.Email, u.FullName, u.DOB, u.Gender)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users ORDER BY date_joined DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== Profile Repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `user_id, phone_number, date_of_birth, gender, blood_group, address,
	height, weight, allergies, medical_conditions, current_medications, updated_at`

func (r *profileRepoPG) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.PhoneNumber, &p.DateOfBirth, &p.Gender, &p.BloodGroup, &p.Address,
		&p.Height, &p.Weight, &p.Allergies, &p.MedicalConditions, &p.CurrentMedications, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) Upsert(ctx context.Context, p *Profile) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO profiles (user_id, phone_number, date_of_birth, gender, blood_group, address,
			height, weight, allergies, medical_conditions, current_medications)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (user_id) DO UPDATE SET
			phone_number=EXCLUDED.phone_number, date_of_birth=EXCLUDED.date_of_birth,
			gender=EXCLUDED.gender, blood_group=EXCLUDED.blood_group, address=EXCLUDED.address,
			height=EXCLUDED.height, weight=EXCLUDED.weight, allergies=EXCLUDED.allergies,
			medical_conditions=EXCLUDED.medical_conditions,
			current_medications=EXCLUDED.current_medications, updated_at=NOW()
		RETURNING updated_at`,
		p.UserID, p.PhoneNumber, p.DateOfBirth, p.Gender, p.BloodGroup, p.Address,
		p.Height, p.Weight, p.Allergies, p.MedicalConditions, p.CurrentMedications).Scan(&p.UpdatedAt)
}
