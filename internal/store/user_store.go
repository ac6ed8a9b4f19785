package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/abonos/internal/domain"
)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	_, err := s.db.write(ctx, WriteUserInsert, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx,
			`INSERT INTO usuarios (username, password_hash, role) VALUES ($1, $2, $3)`,
			u.Username, u.PasswordHash, u.Role,
		)
		return tag.RowsAffected(), err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.db.queryRow(ctx,
		`SELECT username, password_hash, role, created_at FROM usuarios WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, username, hash string) error {
	n, err := s.db.write(ctx, WriteUserPassword, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `UPDATE usuarios SET password_hash = $2 WHERE username = $1`, username, hash)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
