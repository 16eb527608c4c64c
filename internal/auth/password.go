package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password does not match")

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(hash string, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcrypt returns a hasher using bcrypt.DefaultCost.
func NewBcrypt() PasswordHasher {
	return &bcryptHasher{cost: bcrypt.DefaultCost}
}

// NewBcryptWithCost is used by tests to keep hashing fast.
func NewBcryptWithCost(cost int) PasswordHasher {
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *bcryptHasher) ComparePassword(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
