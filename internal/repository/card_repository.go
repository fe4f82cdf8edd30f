package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/bank-cards/internal/models"
)

const cardColumns = `id, user_id, encrypted_card_number, last4, encrypted_placeholder,
		expiration_date, status, balance, version, created_at, updated_at`

// CardRepository stores cards in PostgreSQL
type CardRepository struct {
	db *sql.DB // nil when bound to a transaction
	q  querier
}

// NewCardRepository initializes a card repository on db
func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db, q: db}
}

// WithTx runs fn in a new transaction, or in the current one if the
// repository is already bound to a transaction.
func (r *CardRepository) WithTx(ctx context.Context, fn func(tx CardStore) error) error {
	if r.db == nil {
		return fn(r)
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&CardRepository{q: tx})
	})
}

// Create inserts a new card
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO bank.cards (user_id, encrypted_card_number, last4, encrypted_placeholder,
			expiration_date, status, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, version, created_at, updated_at`
	err := r.q.QueryRowContext(ctx, query,
		card.UserID,
		card.EncryptedNumber,
		card.Last4,
		card.EncryptedHolderName,
		card.ExpirationDate,
		card.Status.String(),
		card.Balance,
	).Scan(&card.ID, &card.Version, &card.CreatedAt, &card.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateCardNumber
	}
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// Update saves the mutable card fields with an optimistic version check
func (r *CardRepository) Update(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET encrypted_placeholder = $1, status = $2, balance = $3,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND version = $5
		RETURNING version, updated_at`
	err := r.q.QueryRowContext(ctx, query,
		card.EncryptedHolderName,
		card.Status.String(),
		card.Balance,
		card.ID,
		card.Version,
	).Scan(&card.Version, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStaleCard
	}
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}
	return nil
}

// FindByID retrieves a card by id
func (r *CardRepository) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByIDForUpdate retrieves a card by id and locks its row until the transaction ends
func (r *CardRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id)
}

// FindByIDAndUser retrieves a card by id only if it belongs to userID
func (r *CardRepository) FindByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1 AND user_id = $2`
	return r.findOne(ctx, query, id, userID)
}

// FindByIDAndUserForUpdate is FindByIDAndUser with a row lock
func (r *CardRepository) FindByIDAndUserForUpdate(ctx context.Context, id, userID int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return r.findOne(ctx, query, id, userID)
}

// FindByUser retrieves one page of a user's cards
func (r *CardRepository) FindByUser(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Card], error) {
	page = page.Normalize()
	total, err := pageTotal(ctx, r.q, `SELECT COUNT(*) FROM bank.cards WHERE user_id = $1`, userID)
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	cards, err := r.findMany(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	return models.NewPage(cards, page, total), nil
}

// FindAll retrieves one page of all cards
func (r *CardRepository) FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error) {
	page = page.Normalize()
	total, err := pageTotal(ctx, r.q, `SELECT COUNT(*) FROM bank.cards`)
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	query := `SELECT ` + cardColumns + ` FROM bank.cards ORDER BY id LIMIT $1 OFFSET $2`
	cards, err := r.findMany(ctx, query, page.Size, page.Offset())
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	return models.NewPage(cards, page, total), nil
}

// FindAllByUser retrieves every card of a user
func (r *CardRepository) FindAllByUser(ctx context.Context, userID int64) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE user_id = $1 ORDER BY id`
	return r.findMany(ctx, query, userID)
}

// Search retrieves one page of a user's cards narrowed by the filter
func (r *CardRepository) Search(ctx context.Context, userID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.Card], error) {
	page = page.Normalize()

	var (
		cardID sql.NullInt64
		last4  sql.NullString
		status sql.NullString
	)
	if filter.CardID != nil {
		cardID = sql.NullInt64{Int64: *filter.CardID, Valid: true}
	}
	if filter.Last4 != nil {
		last4 = sql.NullString{String: *filter.Last4, Valid: true}
	}
	if filter.Status != nil {
		status = sql.NullString{String: filter.Status.String(), Valid: true}
	}

	where := `
		WHERE user_id = $1
		AND ($2::BIGINT IS NULL OR id = $2)
		AND ($3::TEXT IS NULL OR last4 = $3)
		AND ($4::TEXT IS NULL OR status = $4)`

	total, err := pageTotal(ctx, r.q, `SELECT COUNT(*) FROM bank.cards`+where, userID, cardID, last4, status)
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	query := `SELECT ` + cardColumns + ` FROM bank.cards` + where + ` ORDER BY id LIMIT $5 OFFSET $6`
	cards, err := r.findMany(ctx, query, userID, cardID, last4, status, page.Size, page.Offset())
	if err != nil {
		return models.Page[models.Card]{}, err
	}
	return models.NewPage(cards, page, total), nil
}

// BalanceByIDAndUser reads the balance of a card owned by userID
func (r *CardRepository) BalanceByIDAndUser(ctx context.Context, id, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := `SELECT balance FROM bank.cards WHERE id = $1 AND user_id = $2`
	err := r.q.QueryRowContext(ctx, query, id, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of card %d: %w", id, err)
	}
	return balance, nil
}

// ExistsByEncryptedNumber reports whether a card with this ciphertext is stored
func (r *CardRepository) ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bank.cards WHERE encrypted_card_number = $1)`
	if err := r.q.QueryRowContext(ctx, query, encryptedNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check card number: %w", err)
	}
	return exists, nil
}

// UpdateStatus sets the status of one card
func (r *CardRepository) UpdateStatus(ctx context.Context, id int64, status models.CardStatus) error {
	query := `
		UPDATE bank.cards
		SET status = $1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`
	res, err := r.q.ExecContext(ctx, query, status.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update status of card %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireOverdue marks every card past its expiration date as EXPIRED
func (r *CardRepository) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE bank.cards
		SET status = $1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE expiration_date < $2 AND status <> $1`
	res, err := r.q.ExecContext(ctx, query, models.CardStatusExpired.String(), models.Date(today))
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue cards: %w", err)
	}
	return rowsAffected(res)
}

// Delete removes a card row
func (r *CardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (models.Card, error) {
	var (
		card   models.Card
		status string
	)
	err := row.Scan(
		&card.ID, &card.UserID, &card.EncryptedNumber, &card.Last4, &card.EncryptedHolderName,
		&card.ExpirationDate, &status, &card.Balance, &card.Version, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return models.Card{}, err
	}
	card.Status = models.ParseCardStatus(status)
	return card, nil
}

func (r *CardRepository) findOne(ctx context.Context, query string, args ...any) (*models.Card, error) {
	card, err := scanCard(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return &card, nil
}

func (r *CardRepository) findMany(ctx context.Context, query string, args ...any) ([]models.Card, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cards, nil
}
