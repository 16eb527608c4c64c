package core

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidEmail      = errors.New("please enter a valid email address")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrInvalidUsername   = errors.New("username must be between 3 and 50 characters")
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidExpiry     = errors.New("expiry date must be in MM/YY format")
	ErrCardExpired       = errors.New("card has expired")
	ErrExpiryTooFar      = errors.New("expiry date is too far in the future")
	ErrInvalidCVV        = errors.New("CVV must be 3 or 4 digits")
)

const (
	MinPasswordLength = 8
	maxExpiryYears    = 20
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail requires a local part, an @ and a dotted domain.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	if n < 3 || n > 50 {
		return ErrInvalidUsername
	}
	return nil
}

// NormalizeCardNumber strips the spaces and dashes users type between digit groups.
func NormalizeCardNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}

// LuhnValid reports whether digits is a non-empty all-digit string with a valid
// Luhn checksum.
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateCardNumber accepts 13 to 19 digits (separators allowed) passing Luhn.
func ValidateCardNumber(number string) error {
	n := NormalizeCardNumber(number)
	if len(n) < 13 || len(n) > 19 || !LuhnValid(n) {
		return ErrInvalidCardNumber
	}
	return nil
}

// ParseExpiry parses MM/YY and returns the month and the four digit year.
func ParseExpiry(s string) (month, year int, err error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != '/' {
		return 0, 0, ErrInvalidExpiry
	}
	month, err = strconv.Atoi(s[:2])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, ErrInvalidExpiry
	}
	yy, err := strconv.Atoi(s[3:])
	if err != nil || yy < 0 {
		return 0, 0, ErrInvalidExpiry
	}
	return month, 2000 + yy, nil
}

// ValidateExpiry rejects malformed dates, cards whose expiry month has ended
// before now, and dates more than 20 years ahead.
func ValidateExpiry(s string, now time.Time) error {
	month, year, err := ParseExpiry(s)
	if err != nil {
		return err
	}
	// A card is valid through the last day of its expiry month.
	endOfMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(endOfMonth) {
		return ErrCardExpired
	}
	if endOfMonth.After(now.UTC().AddDate(maxExpiryYears, 1, 0)) {
		return ErrExpiryTooFar
	}
	return nil
}

func ValidateCVV(cvv string) error {
	cvv = strings.TrimSpace(cvv)
	if len(cvv) < 3 || len(cvv) > 4 {
		return ErrInvalidCVV
	}
	for _, r := range cvv {
		if r < '0' || r > '9' {
			return ErrInvalidCVV
		}
	}
	return nil
}

// MaskCardNumber keeps only the last four digits visible.
func MaskCardNumber(number string) string {
	n := NormalizeCardNumber(number)
	if len(n) < 4 {
		return "**** **** **** " + n
	}
	return "**** **** **** " + n[len(n)-4:]
}

// LastFour returns the last four digits of a card number.
func LastFour(number string) string {
	n := NormalizeCardNumber(number)
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}
