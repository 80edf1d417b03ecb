package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// UserRepository handles persistence for the user directory.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Create inserts a user. A second user with the same email yields
// model.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO users (id, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return model.ErrUserExists
		}
		return classify(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

// SetRole changes the role of an existing user.
func (r *UserRepository) SetRole(ctx context.Context, email string, role model.Role) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE users SET role = $2 WHERE email = $1`, email, string(role))
	if err != nil {
		return classify(fmt.Errorf("set user role: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// GetByEmail returns the user with the given email or model.ErrUserNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, email, name, role, created_at FROM users WHERE email = $1`,
		email,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, classify(fmt.Errorf("get user: %w", err))
	}
	return u, nil
}

// List returns every user in registration order.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT id, email, name, role, created_at FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}
