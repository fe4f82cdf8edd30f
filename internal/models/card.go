package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardNumberLength is the number of digits in an issued card number
const CardNumberLength = 16

// CardValidityYears is how long a card stays valid after issuance
const CardValidityYears = 10

// CardStatus is the lifecycle status of a card
type CardStatus string

const (
	CardStatusActive           CardStatus = "ACTIVE"
	CardStatusBlocked          CardStatus = "BLOCKED"
	CardStatusExpired          CardStatus = "EXPIRED"
	CardStatusRequestedBlocked CardStatus = "REQUESTED_BLOCKED"
	CardStatusUnknown          CardStatus = "UNKNOWN"
)

// ParseCardStatus maps a persisted value to a CardStatus. Unrecognized
// values become CardStatusUnknown.
func ParseCardStatus(s string) CardStatus {
	switch cs := CardStatus(s); cs {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired, CardStatusRequestedBlocked:
		return cs
	default:
		return CardStatusUnknown
	}
}

// Valid reports whether the status is one a card can be filtered by
func (s CardStatus) Valid() bool {
	return ParseCardStatus(string(s)) != CardStatusUnknown
}

func (s CardStatus) String() string {
	return string(s)
}

// Card represents a bank card. Number and HolderName are plaintext mirrors
// that only live in memory; storage sees the Encrypted* fields.
type Card struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	EncryptedNumber     string          `json:"-"`
	EncryptedHolderName string          `json:"-"`
	Last4               string          `json:"last4"`
	ExpirationDate      time.Time       `json:"expiration_date"`
	Status              CardStatus      `json:"status"`
	Balance             decimal.Decimal `json:"balance"`
	Version             int64           `json:"-"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	Number     string `json:"-"`
	HolderName string `json:"-"`
}

// IsPastExpiry reports whether the expiration date lies before today
func (c *Card) IsPastExpiry(today time.Time) bool {
	return c.ExpirationDate.Before(Date(today))
}

// CheckOperable returns nil when funds may move through the card.
// A card whose expiration date has passed while still persisted as usable
// yields a *LapsedCardError so the caller can record the expiry.
func (c *Card) CheckOperable(today time.Time) error {
	switch c.Status {
	case CardStatusBlocked:
		return ErrCardBlocked
	case CardStatusExpired:
		return ErrCardExpired
	}
	if c.IsPastExpiry(today) {
		return &LapsedCardError{CardID: c.ID}
	}
	switch c.Status {
	case CardStatusActive:
		return nil
	case CardStatusRequestedBlocked:
		return ErrCardBlockPending
	default:
		return ErrUnknownCardStatus
	}
}

// RequestBlock is the cardholder side of blocking: ACTIVE -> REQUESTED_BLOCKED
func (c *Card) RequestBlock() error {
	switch c.Status {
	case CardStatusActive:
		c.Status = CardStatusRequestedBlocked
		return nil
	case CardStatusBlocked:
		return ErrCardAlreadyBlocked
	case CardStatusExpired:
		return ErrCardInactive
	case CardStatusRequestedBlocked:
		return ErrBlockRequested
	default:
		return ErrUnknownCardStatus
	}
}

// ConfirmBlock is the administrator side of blocking: REQUESTED_BLOCKED -> BLOCKED
func (c *Card) ConfirmBlock() error {
	if c.Status != CardStatusRequestedBlocked {
		return ErrBlockNotRequested
	}
	c.Status = CardStatusBlocked
	return nil
}

// Activate moves any non-active card back to ACTIVE
func (c *Card) Activate() error {
	if c.Status == CardStatusActive {
		return ErrCardAlreadyActive
	}
	c.Status = CardStatusActive
	return nil
}

// LapsedCardError reports a card found past its expiration date while its
// stored status still allowed use.
type LapsedCardError struct {
	CardID int64
}

func (e *LapsedCardError) Error() string {
	return ErrCardExpired.Error()
}

func (e *LapsedCardError) Unwrap() error {
	return ErrCardExpired
}

// Date truncates t to midnight UTC of its calendar day
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RoundMoney rounds an amount half-up to two fractional digits
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CheckAmount rejects amounts that are not positive or carry fractions of a kopeck
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// CardFilter narrows a cardholder's card search. Nil fields impose no constraint
type CardFilter struct {
	CardID *int64
	Last4  *string
	Status *CardStatus
}

// CardView is the outward-facing card projection with a masked number
type CardView struct {
	ID             int64           `json:"id"`
	CardNumber     string          `json:"card_number"`
	HolderName     string          `json:"holder_name"`
	ExpirationDate string          `json:"expiration_date"`
	Status         CardStatus      `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	UserID         int64           `json:"user_id"`
}

// FundsReceipt confirms a deposit or withdrawal
type FundsReceipt struct {
	CardID     int64           `json:"card_id"`
	CardNumber string          `json:"card_number"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	Message    string          `json:"message"`
}

// TransferReceipt confirms a transfer between two cards of the same owner
type TransferReceipt struct {
	FromCardID     int64           `json:"from_card_id"`
	FromCardNumber string          `json:"from_card_number"`
	ToCardID       int64           `json:"to_card_id"`
	ToCardNumber   string          `json:"to_card_number"`
	Amount         decimal.Decimal `json:"amount"`
	Message        string          `json:"message"`
}

// Balance is the result of a balance inquiry
type Balance struct {
	CardID  int64           `json:"card_id"`
	Balance decimal.Decimal `json:"balance"`
	Message string          `json:"message"`
}

// BlockRequestResult echoes the reason given for a block request; the reason is not stored
type BlockRequestResult struct {
	Card   CardView `json:"card"`
	Reason string   `json:"reason"`
}

// CardActionResult confirms an administrative card action
type CardActionResult struct {
	Card    CardView `json:"card"`
	Message string   `json:"message"`
}
