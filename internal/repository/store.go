package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-cards/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrStaleCard is returned when a card update lost an optimistic-lock race.
	ErrStaleCard = errors.New("card version is stale")
	// ErrDuplicateCardNumber is returned when an encrypted card number is already stored.
	ErrDuplicateCardNumber = errors.New("card number already exists")
	// ErrDuplicatePhone is returned when a phone number is already registered.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// CardStore is the persistence contract for cards.
//
// Methods that save cards write only the Encrypted* fields; methods that load
// cards fill only the Encrypted* fields. EncryptedCardStore bridges the gap.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	// Update saves holder name, status and balance if card.Version is current,
	// and advances card.Version.
	Update(ctx context.Context, card *models.Card) error

	FindByID(ctx context.Context, id int64) (*models.Card, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error)
	FindByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error)
	FindByIDAndUserForUpdate(ctx context.Context, id, userID int64) (*models.Card, error)
	FindByUser(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Card], error)
	FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error)
	FindAllByUser(ctx context.Context, userID int64) ([]models.Card, error)
	Search(ctx context.Context, userID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.Card], error)

	BalanceByIDAndUser(ctx context.Context, id, userID int64) (decimal.Decimal, error)
	ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error)

	// UpdateStatus sets the status of one card. Called on a root store it
	// commits on its own, independent of any transaction in flight.
	UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error
	// ExpireOverdue marks every card whose expiration date is before today as EXPIRED.
	ExpireOverdue(ctx context.Context, today time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error

	// WithTx runs fn against a store bound to one transaction. The transaction
	// commits if fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx CardStore) error) error
}

// UserStore is the persistence contract for users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.User], error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Delete(ctx context.Context, id int64) error
}
