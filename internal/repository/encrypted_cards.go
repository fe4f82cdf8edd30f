package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/utils"
)

// Cipher is a reversible transform for sensitive card fields
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// EncryptedCardStore wraps a CardStore so that card numbers and holder names
// are encrypted on every save and decrypted on every load.
type EncryptedCardStore struct {
	next   CardStore
	cipher Cipher
}

// NewEncryptedCardStore decorates next with field encryption
func NewEncryptedCardStore(next CardStore, cipher Cipher) *EncryptedCardStore {
	return &EncryptedCardStore{next: next, cipher: cipher}
}

func (s *EncryptedCardStore) Create(ctx context.Context, card *models.Card) error {
	if err := s.encrypt(card); err != nil {
		return err
	}
	return s.next.Create(ctx, card)
}

func (s *EncryptedCardStore) Update(ctx context.Context, card *models.Card) error {
	if err := s.encrypt(card); err != nil {
		return err
	}
	return s.next.Update(ctx, card)
}

func (s *EncryptedCardStore) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	return s.decryptOne(s.next.FindByID(ctx, id))
}

func (s *EncryptedCardStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	return s.decryptOne(s.next.FindByIDForUpdate(ctx, id))
}

func (s *EncryptedCardStore) FindByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error) {
	return s.decryptOne(s.next.FindByIDAndUser(ctx, id, userID))
}

func (s *EncryptedCardStore) FindByIDAndUserForUpdate(ctx context.Context, id, userID int64) (*models.Card, error) {
	return s.decryptOne(s.next.FindByIDAndUserForUpdate(ctx, id, userID))
}

func (s *EncryptedCardStore) FindByUser(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Card], error) {
	return s.decryptPage(s.next.FindByUser(ctx, userID, page))
}

func (s *EncryptedCardStore) FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error) {
	return s.decryptPage(s.next.FindAll(ctx, page))
}

func (s *EncryptedCardStore) FindAllByUser(ctx context.Context, userID int64) ([]models.Card, error) {
	cards, err := s.next.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.decryptAll(cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *EncryptedCardStore) Search(ctx context.Context, userID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.Card], error) {
	return s.decryptPage(s.next.Search(ctx, userID, filter, page))
}

func (s *EncryptedCardStore) BalanceByIDAndUser(ctx context.Context, id, userID int64) (decimal.Decimal, error) {
	return s.next.BalanceByIDAndUser(ctx, id, userID)
}

func (s *EncryptedCardStore) ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	return s.next.ExistsByEncryptedNumber(ctx, encryptedNumber)
}

func (s *EncryptedCardStore) UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error {
	return s.next.UpdateStatus(ctx, id, status)
}

func (s *EncryptedCardStore) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	return s.next.ExpireOverdue(ctx, today)
}

func (s *EncryptedCardStore) Delete(ctx context.Context, id int64) error {
	return s.next.Delete(ctx, id)
}

func (s *EncryptedCardStore) WithTx(ctx context.Context, fn func(tx CardStore) error) error {
	return s.next.WithTx(ctx, func(tx CardStore) error {
		return fn(&EncryptedCardStore{next: tx, cipher: s.cipher})
	})
}

// encrypt fills the Encrypted* fields from the plaintext mirrors. Blank
// plaintext leaves the stored value untouched.
func (s *EncryptedCardStore) encrypt(card *models.Card) error {
	if strings.TrimSpace(card.Number) != "" {
		enc, err := s.cipher.Encrypt(card.Number)
		if err != nil {
			return fmt.Errorf("failed to encrypt card number: %w", err)
		}
		card.EncryptedNumber = enc
		if strings.TrimSpace(card.Last4) == "" {
			card.Last4 = utils.LastFour(card.Number)
		}
	}
	if strings.TrimSpace(card.HolderName) != "" {
		enc, err := s.cipher.Encrypt(card.HolderName)
		if err != nil {
			return fmt.Errorf("failed to encrypt holder name: %w", err)
		}
		card.EncryptedHolderName = enc
	}
	return nil
}

func (s *EncryptedCardStore) decrypt(card *models.Card) error {
	if card.EncryptedNumber != "" {
		number, err := s.cipher.Decrypt(card.EncryptedNumber)
		if err != nil {
			return fmt.Errorf("failed to decrypt number of card %d: %w", card.ID, err)
		}
		card.Number = number
	}
	if card.EncryptedHolderName != "" {
		name, err := s.cipher.Decrypt(card.EncryptedHolderName)
		if err != nil {
			return fmt.Errorf("failed to decrypt holder of card %d: %w", card.ID, err)
		}
		card.HolderName = name
	}
	return nil
}

func (s *EncryptedCardStore) decryptOne(card *models.Card, err error) (*models.Card, error) {
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}
	if err := s.decrypt(card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *EncryptedCardStore) decryptPage(page models.Page[models.Card], err error) (models.Page[models.Card], error) {
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	if err := s.decryptAll(page.Content); err != nil {
		return models.Page[models.Card]{}, err
	}
	return page, nil
}

func (s *EncryptedCardStore) decryptAll(cards []models.Card) error {
	for i := range cards {
		if err := s.decrypt(&cards[i]); err != nil {
			return err
		}
	}
	return nil
}
