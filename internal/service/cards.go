package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/apperr"
	"github.com/Dan9191/bank-cards/internal/metrics"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

// CardService runs cardholder operations. Every card is resolved by the
// (card id, owner id) pair, so a card of another owner is simply not found.
type CardService struct {
	cards     repository.CardStore
	users     repository.UserStore
	sweeper   *ExpirationSweeper
	publisher *publisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
	now       func() time.Time
}

// NewCardService initializes the cardholder service
func NewCardService(cards repository.CardStore, users repository.UserStore, sweeper *ExpirationSweeper,
	notifier Notifier, m *metrics.Metrics, log *logrus.Logger) *CardService {
	return &CardService{
		cards:     cards,
		users:     users,
		sweeper:   sweeper,
		publisher: &publisher{users: users, notifier: notifier, log: log},
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Deposit credits amount to the card
func (s *CardService) Deposit(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error) {
	start := time.Now()
	card, err := s.moveFunds(ctx, cardID, ownerID, amount, func(c *models.Card) error {
		c.Balance = models.RoundMoney(c.Balance.Add(amount))
		return nil
	})
	s.observe("deposit", start, err)
	if err != nil {
		return nil, err
	}

	receipt, err := s.receipt(card, amount, "Deposited %s rubles to the card. Card balance is %s rubles")
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"card_id": cardID, "user_id": ownerID, "amount": amount.StringFixed(2)}).Info("Deposit completed")
	s.publisher.publish(ctx, ownerID, models.CardEvent{Kind: models.CardEventDeposit, HolderName: card.HolderName,
		CardNumber: receipt.CardNumber, Amount: amount, Balance: card.Balance})
	return receipt, nil
}

// Withdraw debits amount from the card if the balance covers it
func (s *CardService) Withdraw(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error) {
	start := time.Now()
	card, err := s.moveFunds(ctx, cardID, ownerID, amount, func(c *models.Card) error {
		if c.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		c.Balance = models.RoundMoney(c.Balance.Sub(amount))
		return nil
	})
	s.observe("withdraw", start, err)
	if err != nil {
		return nil, err
	}

	receipt, err := s.receipt(card, amount, "Withdrew %s rubles from the card. Card balance is %s rubles")
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"card_id": cardID, "user_id": ownerID, "amount": amount.StringFixed(2)}).Info("Withdrawal completed")
	s.publisher.publish(ctx, ownerID, models.CardEvent{Kind: models.CardEventWithdrawal, HolderName: card.HolderName,
		CardNumber: receipt.CardNumber, Amount: amount, Balance: card.Balance})
	return receipt, nil
}

// moveFunds applies change to one locked card inside a transaction
func (s *CardService) moveFunds(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal,
	change func(c *models.Card) error) (*models.Card, error) {
	if err := models.CheckAmount(amount); err != nil {
		return nil, err
	}

	var card *models.Card
	err := s.cards.WithTx(ctx, func(tx repository.CardStore) error {
		c, err := tx.FindByIDAndUserForUpdate(ctx, cardID, ownerID)
		if err != nil {
			return cardErr(err)
		}
		if err := c.CheckOperable(s.now()); err != nil {
			return err
		}
		if err := change(c); err != nil {
			return err
		}
		if err := tx.Update(ctx, c); err != nil {
			return cardErr(err)
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, s.sweeper.settle(ctx, err)
	}
	return card, nil
}

// Transfer moves amount between two cards of the same owner atomically
func (s *CardService) Transfer(ctx context.Context, fromID, toID, ownerID int64, amount decimal.Decimal) (*models.TransferReceipt, error) {
	start := time.Now()
	receipt, err := s.transfer(ctx, fromID, toID, ownerID, amount)
	s.observe("transfer", start, err)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"from_card_id": fromID, "to_card_id": toID, "user_id": ownerID,
		"amount": amount.StringFixed(2)}).Info("Transfer completed")
	return receipt, nil
}

func (s *CardService) transfer(ctx context.Context, fromID, toID, ownerID int64, amount decimal.Decimal) (*models.TransferReceipt, error) {
	if fromID == toID {
		return nil, models.ErrSameCardTransfer
	}
	if err := models.CheckAmount(amount); err != nil {
		return nil, err
	}

	var from, to *models.Card
	err := s.cards.WithTx(ctx, func(tx repository.CardStore) error {
		// Rows are locked in id order so opposite transfers cannot deadlock.
		firstID, secondID := fromID, toID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		first, err := tx.FindByIDAndUserForUpdate(ctx, firstID, ownerID)
		if err != nil {
			return cardErr(err)
		}
		second, err := tx.FindByIDAndUserForUpdate(ctx, secondID, ownerID)
		if err != nil {
			return cardErr(err)
		}
		from, to = first, second
		if from.ID != fromID {
			from, to = second, first
		}

		today := s.now()
		if err := from.CheckOperable(today); err != nil {
			return err
		}
		if err := to.CheckOperable(today); err != nil {
			return err
		}
		if from.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}

		from.Balance = models.RoundMoney(from.Balance.Sub(amount))
		to.Balance = models.RoundMoney(to.Balance.Add(amount))
		if err := tx.Update(ctx, from); err != nil {
			return cardErr(err)
		}
		return cardErr(tx.Update(ctx, to))
	})
	if err != nil {
		return nil, s.sweeper.settle(ctx, err)
	}

	source, err := toView(*from)
	if err != nil {
		return nil, err
	}
	target, err := toView(*to)
	if err != nil {
		return nil, err
	}
	return &models.TransferReceipt{
		FromCardID:     from.ID,
		FromCardNumber: source.CardNumber,
		ToCardID:       to.ID,
		ToCardNumber:   target.CardNumber,
		Amount:         amount,
		Message: fmt.Sprintf("Transferred %s rubles from card %s to card %s",
			amount.StringFixed(2), source.CardNumber, target.CardNumber),
	}, nil
}

// ShowBalance reads the balance of the card. It does not require an active card
func (s *CardService) ShowBalance(ctx context.Context, cardID, ownerID int64) (*models.Balance, error) {
	balance, err := s.cards.BalanceByIDAndUser(ctx, cardID, ownerID)
	if err != nil {
		return nil, cardErr(err)
	}
	return &models.Balance{
		CardID:  cardID,
		Balance: balance,
		Message: fmt.Sprintf("Card balance: %s rubles", balance.StringFixed(2)),
	}, nil
}

// RequestBlock asks an administrator to block the card. The reason is echoed, not stored
func (s *CardService) RequestBlock(ctx context.Context, ownerID, cardID int64, reason string) (*models.BlockRequestResult, error) {
	var card *models.Card
	err := s.cards.WithTx(ctx, func(tx repository.CardStore) error {
		c, err := tx.FindByIDAndUserForUpdate(ctx, cardID, ownerID)
		if err != nil {
			return cardErr(err)
		}
		if err := c.RequestBlock(); err != nil {
			return err
		}
		if err := tx.Update(ctx, c); err != nil {
			return cardErr(err)
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := toView(*card)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"card_id": cardID, "user_id": ownerID}).Info("Card block requested")
	return &models.BlockRequestResult{Card: view, Reason: reason}, nil
}

// Search pages through the owner's cards narrowed by filter
func (s *CardService) Search(ctx context.Context, ownerID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.CardView], error) {
	exists, err := s.users.ExistsByID(ctx, ownerID)
	if err != nil {
		return models.Page[models.CardView]{}, err
	}
	if !exists {
		return models.Page[models.CardView]{}, models.ErrUserNotFound
	}

	cards, err := s.cards.Search(ctx, ownerID, filter, page)
	if err != nil {
		return models.Page[models.CardView]{}, err
	}
	return models.MapPage(cards, toView)
}

func (s *CardService) receipt(card *models.Card, amount decimal.Decimal, format string) (*models.FundsReceipt, error) {
	view, err := toView(*card)
	if err != nil {
		return nil, err
	}
	return &models.FundsReceipt{
		CardID:     card.ID,
		CardNumber: view.CardNumber,
		Amount:     amount,
		Balance:    card.Balance,
		Message:    fmt.Sprintf(format, amount.StringFixed(2), card.Balance.StringFixed(2)),
	}, nil
}

func (s *CardService) observe(operation string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeRejected
		if apperr.KindOf(err) == apperr.KindInternal {
			outcome = metrics.OutcomeError
		}
	}
	s.metrics.ObserveFundsOperation(operation, outcome, time.Since(start))
	if err != nil && outcome == metrics.OutcomeError {
		s.log.WithField("operation", operation).WithError(err).Error("Funds operation failed")
	}
}
