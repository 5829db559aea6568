package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repair-desk/internal/core"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by AuthenticateUser for an unknown user
// or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

const sectionUser = "user"

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserSession{UserID: u.ID, Username: u.Username, IsStaff: u.IsStaff}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userResult(u, false), nil
}

func (s *appService) CreateAdminUser(ctx context.Context, req CreateUserRequest) (*UserResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	verr := &core.ValidationError{}
	if req.Username == "" {
		verr.Add(sectionUser, "username", "This field is required.")
	}
	if req.Password == "" {
		verr.Add(sectionUser, "password", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var result *UserResult
	err = s.store.WithTx(ctx, func(tx core.Tx) error {
		existing, err := tx.GetUserByUsername(ctx, req.Username)
		if err == nil {
			result = userResult(existing, false)
			return nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		u := &core.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			IsStaff:      true,
			CreatedAt:    s.clock.Now(),
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to create user %s: %w", req.Username, err)
		}
		result = userResult(u, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Created {
		s.logger.Info("admin user created", "username", result.Username)
	}
	return result, nil
}

func (s *appService) ResetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		verr := &core.ValidationError{}
		verr.Add(sectionUser, "password", "This field is required.")
		return verr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.WithTx(ctx, func(tx core.Tx) error {
		u, err := tx.GetUserByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			return fmt.Errorf("failed to load user %s: %w", username, err)
		}
		if err := tx.UpdateUserPassword(ctx, u.ID, string(hash)); err != nil {
			return fmt.Errorf("failed to update password for %s: %w", username, err)
		}
		return nil
	})
}

func userResult(u *core.User, created bool) *UserResult {
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, IsStaff: u.IsStaff, Created: created}
}
