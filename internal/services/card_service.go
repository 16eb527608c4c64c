package services

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/cardvault"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// CardService stores payment cards with encrypted numbers and only ever
// hands out masked ones.
type CardService struct {
	repo   *storage.SQLiteRepository
	vault  *cardvault.Vault
	caches *Caches
	logger *applog.Logger
	now    func() time.Time
}

func NewCardService(repo *storage.SQLiteRepository, vault *cardvault.Vault, caches *Caches, logger *applog.Logger) *CardService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &CardService{
		repo:   repo,
		vault:  vault,
		caches: caches,
		logger: logger.WithComponent(applog.ComponentCard),
		now:    time.Now,
	}
}

// Create validates the raw number, expiry and CVV, then stores the card.
// The CVV is checked and dropped.
func (s *CardService) Create(ctx context.Context, c core.Card, cvv string) (core.Card, error) {
	c.Number = core.NormalizeCardNumber(c.Number)
	if err := core.ValidateCardNumber(c.Number); err != nil {
		return core.Card{}, err
	}
	if err := core.ValidateExpiry(c.Expiry, s.now()); err != nil {
		return core.Card{}, err
	}
	if err := core.ValidateCVV(cvv); err != nil {
		return core.Card{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}

	encrypted, err := s.vault.Encrypt(c.Number)
	if err != nil {
		return core.Card{}, fmt.Errorf("encrypt card number: %w", err)
	}
	c.Last4 = core.LastFour(c.Number)

	stored, err := s.repo.CreateCard(ctx, c, encrypted)
	if err != nil {
		return core.Card{}, err
	}
	s.caches.invalidateCards(c.UserID)

	s.logger.InfoContext(ctx, "Card added",
		applog.FieldUserID, c.UserID,
		applog.FieldCardID, stored.ID)
	return s.masked(ctx, stored), nil
}

// List returns the user's cards, newest first, with masked numbers.
func (s *CardService) List(ctx context.Context, userID int64) ([]core.Card, error) {
	if s.caches != nil {
		if cards, ok := s.caches.Cards.Get(userKey(userID)); ok {
			return cards, nil
		}
	}

	stored, err := s.repo.ListCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	cards := make([]core.Card, 0, len(stored))
	for _, sc := range stored {
		cards = append(cards, s.masked(ctx, sc))
	}

	if s.caches != nil {
		s.caches.Cards.Set(userKey(userID), cards)
	}
	return cards, nil
}

func (s *CardService) Get(ctx context.Context, userID, id int64) (core.Card, error) {
	stored, err := s.repo.GetCard(ctx, userID, id)
	if err != nil {
		return core.Card{}, err
	}
	return s.masked(ctx, stored), nil
}

// Update changes metadata and balance. The number stays as stored.
func (s *CardService) Update(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	stored, err := s.repo.UpdateCard(ctx, c)
	if err != nil {
		return core.Card{}, err
	}
	s.caches.invalidateCards(c.UserID)
	return s.masked(ctx, stored), nil
}

// Delete removes the card. Expenses paid with it keep their rows with no card.
func (s *CardService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteCard(ctx, userID, id); err != nil {
		return err
	}
	s.caches.invalidateCards(userID)
	s.logger.InfoContext(ctx, "Card deleted",
		applog.FieldUserID, userID,
		applog.FieldCardID, id)
	return nil
}

// masked decrypts the stored number and replaces it with its masked form.
// A row that cannot be decrypted falls back to the stored last four digits.
func (s *CardService) masked(ctx context.Context, sc storage.StoredCard) core.Card {
	c := sc.Card
	plain, err := s.vault.Decrypt(sc.EncryptedNumber)
	if err != nil {
		s.logger.WarnContext(ctx, "Card number could not be decrypted",
			applog.FieldCardID, sc.ID,
			applog.FieldError, err)
		c.Number = core.MaskCardNumber(sc.Last4)
		return c
	}
	c.Number = core.MaskCardNumber(plain)
	return c
}
