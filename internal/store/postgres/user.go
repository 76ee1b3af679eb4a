package postgres

import (
	"context"

	"github.com/google/uuid"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

const userCols = `id, name, email, password, role, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, password, role) VALUES ($1,$2,$3,$4,$5)
		 RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return translate(err)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (s *Store) UserByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1 AND role = $2`, email, role))
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// empty name/email keep the stored value
func (s *Store) UpdateUser(ctx context.Context, id, name, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = COALESCE(NULLIF($2, ''), name),
		     email = COALESCE(NULLIF($3, ''), email),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userCols, id, name, email))
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "users")
}
