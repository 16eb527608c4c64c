package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

var (
	ErrUserExists         = errors.New("a user with this email or username already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// AccountService manages users: registration, login and profile.
type AccountService struct {
	repo   *storage.SQLiteRepository
	hasher auth.PasswordHasher
	logger *applog.Logger
}

func NewAccountService(repo *storage.SQLiteRepository, hasher auth.PasswordHasher, logger *applog.Logger) *AccountService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &AccountService{
		repo:   repo,
		hasher: hasher,
		logger: logger.WithComponent(applog.ComponentAccount),
	}
}

// Register creates a user with a hashed password.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (core.User, error) {
	u := core.User{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := core.ValidatePassword(password); err != nil {
		return core.User{}, err
	}

	exists, err := s.repo.UserExists(ctx, u.Username, u.Email, 0)
	if err != nil {
		return core.User{}, err
	}
	if exists {
		return core.User{}, ErrUserExists
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	created, err := s.repo.CreateUser(ctx, u)
	if errors.Is(err, storage.ErrConflict) {
		return core.User{}, ErrUserExists
	}
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, created.ID)
	return created, nil
}

// Login checks the credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if err := s.hasher.ComparePassword(u.PasswordHash, password); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (core.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile stores username, email and monthly salary.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, username, email string, salary core.Money) (core.User, error) {
	current, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	current.Username = strings.TrimSpace(username)
	current.Email = strings.ToLower(strings.TrimSpace(email))
	current.MonthlySalary = salary
	if err := current.Validate(); err != nil {
		return core.User{}, err
	}

	exists, err := s.repo.UserExists(ctx, current.Username, current.Email, userID)
	if err != nil {
		return core.User{}, err
	}
	if exists {
		return core.User{}, ErrUserExists
	}

	updated, err := s.repo.UpdateUser(ctx, current)
	if errors.Is(err, storage.ErrConflict) {
		return core.User{}, ErrUserExists
	}
	return updated, err
}

func (s *AccountService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.ComparePassword(u.PasswordHash, currentPassword); err != nil {
		return ErrWrongPassword
	}
	if err := core.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Password changed", applog.FieldUserID, userID)
	return nil
}
