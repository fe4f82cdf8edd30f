package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardEventKind names something that happened to a card that its owner is told about
type CardEventKind string

const (
	CardEventDeposit    CardEventKind = "DEPOSIT"
	CardEventWithdrawal CardEventKind = "WITHDRAWAL"
	CardEventIssued     CardEventKind = "ISSUED"
	CardEventBlocked    CardEventKind = "BLOCKED"
	CardEventActivated  CardEventKind = "ACTIVATED"
)

// CardEvent is a committed card change addressed to the card owner.
// Amount and Balance are set for deposits and withdrawals only.
type CardEvent struct {
	Kind       CardEventKind
	Email      string
	HolderName string
	CardNumber string // masked
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	At         time.Time
}
