package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

func TestCardService_Create(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)

	c, err := env.cards.Create(ctx, validCard(u.ID), "123")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Number != "**** **** **** 6467" {
		t.Errorf("Create().Number = %q, want masked", c.Number)
	}
	if c.Last4 != "6467" {
		t.Errorf("Create().Last4 = %q", c.Last4)
	}

	stored, err := env.repo.GetCard(ctx, u.ID, c.ID)
	if err != nil {
		t.Fatalf("GetCard() error = %v", err)
	}
	if strings.Contains(stored.EncryptedNumber, "4539") {
		t.Errorf("card number stored in clear: %q", stored.EncryptedNumber)
	}

	tests := []struct {
		name    string
		mutate  func(*core.Card)
		cvv     string
		wantErr error
	}{
		{"luhn failure", func(c *core.Card) { c.Number = "4539148803436468" }, "123", core.ErrInvalidCardNumber},
		{"expired", func(c *core.Card) { c.Expiry = "01/20" }, "123", core.ErrCardExpired},
		{"bad expiry format", func(c *core.Card) { c.Expiry = "2028-12" }, "123", core.ErrInvalidExpiry},
		{"bad cvv", func(c *core.Card) {}, "12", core.ErrInvalidCVV},
		{"missing name", func(c *core.Card) { c.Name = " " }, "123", core.ErrEmptyCardName},
		{"negative balance", func(c *core.Card) { c.Balance.Cents = -1 }, "123", core.ErrNegativeBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard(u.ID)
			tt.mutate(&card)
			if _, err := env.cards.Create(ctx, card, tt.cvv); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCardService_ListIsMaskedAndCached(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)
	other := env.user(t, "bob", 0)

	first, err := env.cards.Create(ctx, validCard(u.ID), "123")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.cards.Create(ctx, validCard(other.ID), "123"); err != nil {
		t.Fatalf("Create(other) error = %v", err)
	}

	cards, err := env.cards.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cards) != 1 || cards[0].ID != first.ID {
		t.Fatalf("List() = %+v, want only the user's card", cards)
	}
	if cards[0].Number != "**** **** **** 6467" {
		t.Errorf("List()[0].Number = %q", cards[0].Number)
	}
	if env.caches.Cards.Size() != 1 {
		t.Errorf("card cache size = %d, want 1", env.caches.Cards.Size())
	}

	second := validCard(u.ID)
	second.Name = "Travel"
	if _, err := env.cards.Create(ctx, second, "1234"); err != nil {
		t.Fatalf("Create(second) error = %v", err)
	}
	cards, err = env.cards.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("List() after create = %d cards, want 2 (cache invalidated)", len(cards))
	}
}

func TestCardService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)
	other := env.user(t, "bob", 0)

	c, err := env.cards.Create(ctx, validCard(u.ID), "123")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	c.Name = "Renamed"
	c.Balance = core.Money{Cents: 1234}
	c.Number = "4111111111111111"
	updated, err := env.cards.Update(ctx, c)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Renamed" || updated.Balance.Cents != 1234 {
		t.Errorf("Update() = %+v", updated)
	}
	if updated.Number != "**** **** **** 6467" {
		t.Errorf("Update() changed the number: %q", updated.Number)
	}

	foreign := c
	foreign.UserID = other.ID
	if _, err := env.cards.Update(ctx, foreign); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update(foreign) error = %v, want ErrNotFound", err)
	}
	if err := env.cards.Delete(ctx, other.ID, c.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(foreign) error = %v, want ErrNotFound", err)
	}

	if _, err := env.cards.List(ctx, u.ID); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if err := env.cards.Delete(ctx, u.ID, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	cards, err := env.cards.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("List() after delete = %+v, want empty", cards)
	}
}
