package store

import (
	"context"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserStore struct {
	db Querier
}

func NewUserStore(db Querier) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, password_hash, role, tenant_id, first_name, last_name, phone, is_active, date_joined`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.TenantID,
		&u.FirstName, &u.LastName, &u.Phone, &u.IsActive, &u.DateJoined)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.DefaultRole
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, role, tenant_id, first_name, last_name, phone, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, date_joined`,
		u.Email, u.PasswordHash, u.Role, u.TenantID, u.FirstName, u.LastName, u.Phone, u.IsActive,
	).Scan(&u.ID, &u.DateJoined)
	return mapError(err)
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *UserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, u *domain.User) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, phone = $4 WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.Phone,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
