package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"1.٣", 0, false}, // arabic-indic three
		{"٣", 0, false},
		{"１.50", 0, false}, // fullwidth one
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %d (err=%v)", tc.in, got, err)
			}
		}
	}
}

func TestParseNonNegativeCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"", 0, true},
		{"0", 0, true},
		{"1500.75", 150075, true},
		{"-3", 0, false},
		{"x", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseNonNegativeCents(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q: got %d err=%v, want %d ok=%v", tc.in, got, err, tc.out, tc.ok)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		123456: "1234.56",
		-250:   "-2.50",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestCentsFromFloat(t *testing.T) {
	if got := CentsFromFloat(19.99); got != 1999 {
		t.Errorf("CentsFromFloat(19.99) = %d, want 1999", got)
	}
	if got := CentsFromFloat(0.1 + 0.2); got != 30 {
		t.Errorf("CentsFromFloat(0.3) = %d, want 30", got)
	}
}
