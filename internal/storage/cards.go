package storage

import (
	"context"
	"fmt"

	"expensetracker/internal/core"
)

// StoredCard is a card as persisted: the number is only available encrypted.
type StoredCard struct {
	core.Card
	EncryptedNumber string
}

type cardRow struct {
	ID              int64  `db:"id"`
	UserID          int64  `db:"user_id"`
	Name            string `db:"card_name"`
	Holder          string `db:"card_holder"`
	EncryptedNumber string `db:"card_number_encrypted"`
	Last4           string `db:"last4"`
	Expiry          string `db:"expiry_date"`
	Type            string `db:"card_type"`
	BankName        string `db:"bank_name"`
	BalanceCents    int64  `db:"balance_cents"`
	CreatedAt       string `db:"created_at"`
}

func (c cardRow) toStored() StoredCard {
	return StoredCard{
		Card: core.Card{
			ID:        c.ID,
			UserID:    c.UserID,
			Name:      c.Name,
			Holder:    c.Holder,
			Last4:     c.Last4,
			Expiry:    c.Expiry,
			Type:      c.Type,
			BankName:  c.BankName,
			Balance:   core.Money{Cents: c.BalanceCents},
			CreatedAt: parseTimestamp(c.CreatedAt),
		},
		EncryptedNumber: c.EncryptedNumber,
	}
}

const cardColumns = `id, user_id, card_name, card_holder, card_number_encrypted, last4,
expiry_date, card_type, bank_name, balance_cents, created_at`

const queryCreateCard = `
INSERT INTO cards (user_id, card_name, card_holder, card_number_encrypted, last4,
                   expiry_date, card_type, bank_name, balance_cents, created_at)
VALUES (:user_id, :name, :holder, :encrypted, :last4, :expiry, :type, :bank, :balance, :now)`

// CreateCard stores c with the already encrypted number.
func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card, encryptedNumber string) (StoredCard, error) {
	res, err := r.exec(ctx, queryCreateCard, map[string]any{
		"user_id":   c.UserID,
		"name":      c.Name,
		"holder":    c.Holder,
		"encrypted": encryptedNumber,
		"last4":     c.Last4,
		"expiry":    c.Expiry,
		"type":      c.Type,
		"bank":      c.BankName,
		"balance":   c.Balance.Cents,
		"now":       r.timestamp(),
	})
	if err != nil {
		return StoredCard{}, fmt.Errorf("create card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return StoredCard{}, fmt.Errorf("create card: last insert id: %w", err)
	}
	return r.GetCard(ctx, c.UserID, id)
}

// GetCard returns ErrNotFound when the card belongs to another user.
func (r *SQLiteRepository) GetCard(ctx context.Context, userID, id int64) (StoredCard, error) {
	var row cardRow
	err := r.get(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = :id AND user_id = :user_id`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return StoredCard{}, fmt.Errorf("get card %d: %w", id, err)
	}
	return row.toStored(), nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context, userID int64) ([]StoredCard, error) {
	var rows []cardRow
	err := r.selectRows(ctx, &rows, `SELECT `+cardColumns+` FROM cards WHERE user_id = :user_id ORDER BY created_at DESC, id DESC`,
		map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make([]StoredCard, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, row.toStored())
	}
	return cards, nil
}

const queryUpdateCard = `
UPDATE cards
SET card_name = :name, card_holder = :holder, card_type = :type, bank_name = :bank, balance_cents = :balance
WHERE id = :id AND user_id = :user_id`

// UpdateCard changes metadata and balance. Number and expiry are immutable.
func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) (StoredCard, error) {
	res, err := r.exec(ctx, queryUpdateCard, map[string]any{
		"id":      c.ID,
		"user_id": c.UserID,
		"name":    c.Name,
		"holder":  c.Holder,
		"type":    c.Type,
		"bank":    c.BankName,
		"balance": c.Balance.Cents,
	})
	if err != nil {
		return StoredCard{}, fmt.Errorf("update card %d: %w", c.ID, err)
	}
	if err := affectOne(res); err != nil {
		return StoredCard{}, fmt.Errorf("update card %d: %w", c.ID, err)
	}
	return r.GetCard(ctx, c.UserID, c.ID)
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, userID, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM cards WHERE id = :id AND user_id = :user_id`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	if err := affectOne(res); err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	return nil
}

// SumCardBalances is the total balance across the user's cards.
func (r *SQLiteRepository) SumCardBalances(ctx context.Context, userID int64) (core.Money, error) {
	var total int64
	err := r.get(ctx, &total, `SELECT COALESCE(SUM(balance_cents), 0) FROM cards WHERE user_id = :user_id`,
		map[string]any{"user_id": userID})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum card balances: %w", err)
	}
	return core.Money{Cents: total}, nil
}
