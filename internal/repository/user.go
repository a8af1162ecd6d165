package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-kit/kit/log/level"
	"golang.org/x/crypto/bcrypt"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/models"
)

// SeedUser creates the account if the username is free. An existing account
// keeps its password.
func (s *Store) SeedUser(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: seed user needs username and password", apperr.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.write(ctx, func(ctx context.Context) error {
		_, err := s.exec(ctx,
			`INSERT INTO users (username, password_hash) VALUES (?, ?)
			 ON CONFLICT (username) DO NOTHING`,
			username, string(hash),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: seed user: %v", apperr.ErrStore, err)
	}
	level.Info(s.logger).Log("msg", "seed user ready", "username", username)
	return nil
}

// Authenticate checks the credential pair. Unknown users and wrong passwords
// are indistinguishable to the caller.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	err := s.queryRow(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup user: %v", apperr.ErrStore, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	return &u, nil
}

func (s *Store) userExists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.queryRow(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
