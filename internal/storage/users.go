package storage

import (
	"context"
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

type userRow struct {
	ID                 int64  `db:"id"`
	Username           string `db:"username"`
	Email              string `db:"email"`
	PasswordHash       string `db:"password_hash"`
	MonthlySalaryCents int64  `db:"monthly_salary_cents"`
	CreatedAt          string `db:"created_at"`
}

func (u userRow) toCore() core.User {
	return core.User{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		MonthlySalary: core.Money{Cents: u.MonthlySalaryCents},
		CreatedAt:     parseTimestamp(u.CreatedAt),
	}
}

const userColumns = `id, username, email, password_hash, monthly_salary_cents, created_at`

const queryCreateUser = `
INSERT INTO users (username, email, password_hash, monthly_salary_cents, created_at, updated_at)
VALUES (:username, :email, :password_hash, :salary, :now, :now)`

// CreateUser inserts the user. Duplicate username or email yields ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.exec(ctx, queryCreateUser, map[string]any{
		"username":      strings.TrimSpace(u.Username),
		"email":         strings.ToLower(strings.TrimSpace(u.Email)),
		"password_hash": u.PasswordHash,
		"salary":        u.MonthlySalary.Cents,
		"now":           r.timestamp(),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user: last insert id: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	var row userRow
	err := r.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = :id`, map[string]any{"id": id})
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var row userRow
	err := r.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = :email`,
		map[string]any{"email": strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return row.toCore(), nil
}

// UserExists reports whether the username or the email is taken by another user.
func (r *SQLiteRepository) UserExists(ctx context.Context, username, email string, exceptID int64) (bool, error) {
	var n int
	err := r.get(ctx, &n, `
SELECT COUNT(*) FROM users
WHERE (username = :username OR email = :email) AND id != :except`, map[string]any{
		"username": strings.TrimSpace(username),
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"except":   exceptID,
	})
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}

const queryUpdateUser = `
UPDATE users
SET username = :username, email = :email, monthly_salary_cents = :salary, updated_at = :now
WHERE id = :id`

// UpdateUser stores username, email and salary.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.exec(ctx, queryUpdateUser, map[string]any{
		"id":       u.ID,
		"username": strings.TrimSpace(u.Username),
		"email":    strings.ToLower(strings.TrimSpace(u.Email)),
		"salary":   u.MonthlySalary.Cents,
		"now":      r.timestamp(),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	if err := affectOne(res); err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return r.GetUserByID(ctx, u.ID)
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.exec(ctx, `UPDATE users SET password_hash = :hash, updated_at = :now WHERE id = :id`,
		map[string]any{"id": id, "hash": hash, "now": r.timestamp()})
	if err != nil {
		return fmt.Errorf("update password %d: %w", id, err)
	}
	return affectOne(res)
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM users`, map[string]any{}); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
