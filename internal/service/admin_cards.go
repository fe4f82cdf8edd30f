package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/metrics"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/report"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/Dan9191/bank-cards/internal/utils"
)

// IssueOptions controls card number generation
type IssueOptions struct {
	Prefix      string
	MaxAttempts int
}

// AdminCardService runs administrator card operations. Cards are resolved by id alone
type AdminCardService struct {
	cards     repository.CardStore
	users     repository.UserStore
	cipher    repository.Cipher
	opts      IssueOptions
	publisher *publisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
	now       func() time.Time
	generate  func(prefix string, length int) (string, error)
}

// NewAdminCardService initializes the administrator card service
func NewAdminCardService(cards repository.CardStore, users repository.UserStore, cipher repository.Cipher,
	opts IssueOptions, notifier Notifier, m *metrics.Metrics, log *logrus.Logger) *AdminCardService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &AdminCardService{
		cards:     cards,
		users:     users,
		cipher:    cipher,
		opts:      opts,
		publisher: &publisher{users: users, notifier: notifier, log: log},
		metrics:   m,
		log:       log,
		now:       time.Now,
		generate:  utils.GenerateCardNumber,
	}
}

// Issue creates a new active card for a non-admin user
func (s *AdminCardService) Issue(ctx context.Context, userID int64) (*models.CardView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}
	if user.IsAdmin() {
		return nil, models.ErrAdminCardholder
	}

	entry := s.log.WithField("user_id", userID)
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		number, err := s.generate(s.opts.Prefix, models.CardNumberLength)
		if err != nil {
			return nil, err
		}
		encrypted, err := s.cipher.Encrypt(number)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt card number: %w", err)
		}
		taken, err := s.cards.ExistsByEncryptedNumber(ctx, encrypted)
		if err != nil {
			return nil, err
		}
		if taken {
			s.metrics.IncNumberCollision()
			entry.WithField("attempt", attempt).Warn("Generated card number is taken, retrying")
			continue
		}

		card := &models.Card{
			UserID:         userID,
			Number:         number,
			HolderName:     user.FullName(),
			ExpirationDate: models.Date(s.now()).AddDate(models.CardValidityYears, 0, 0),
			Status:         models.CardStatusActive,
			Balance:        decimal.Zero,
		}
		err = s.cards.Create(ctx, card)
		if errors.Is(err, repository.ErrDuplicateCardNumber) {
			// Lost a race with a concurrent issuance.
			s.metrics.IncNumberCollision()
			entry.WithField("attempt", attempt).Warn("Card number was taken concurrently, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		view, err := toView(*card)
		if err != nil {
			return nil, err
		}
		s.metrics.IncCardsIssued()
		entry.WithFields(logrus.Fields{"card_id": card.ID, "last4": card.Last4}).Info("Card issued")
		s.publisher.publish(ctx, userID, models.CardEvent{Kind: models.CardEventIssued,
			HolderName: view.HolderName, CardNumber: view.CardNumber})
		return &view, nil
	}

	entry.WithField("attempts", s.opts.MaxAttempts).Error("Could not generate a unique card number")
	return nil, models.ErrCardNumberUnavailable
}

// ConfirmBlock blocks a card whose owner requested it
func (s *AdminCardService) ConfirmBlock(ctx context.Context, cardID int64) (*models.CardActionResult, error) {
	result, card, err := s.transition(ctx, cardID, (*models.Card).ConfirmBlock, "Card %s blocked")
	if err != nil {
		return nil, err
	}
	s.publisher.publish(ctx, card.UserID, models.CardEvent{Kind: models.CardEventBlocked,
		HolderName: card.HolderName, CardNumber: result.Card.CardNumber})
	return result, nil
}

// Activate returns a blocked or expired card to ACTIVE
func (s *AdminCardService) Activate(ctx context.Context, cardID int64) (*models.CardActionResult, error) {
	result, card, err := s.transition(ctx, cardID, (*models.Card).Activate, "Card %s activated")
	if err != nil {
		return nil, err
	}
	s.publisher.publish(ctx, card.UserID, models.CardEvent{Kind: models.CardEventActivated,
		HolderName: card.HolderName, CardNumber: result.Card.CardNumber})
	return result, nil
}

func (s *AdminCardService) transition(ctx context.Context, cardID int64, apply func(*models.Card) error,
	message string) (*models.CardActionResult, *models.Card, error) {
	var card *models.Card
	err := s.cards.WithTx(ctx, func(tx repository.CardStore) error {
		c, err := tx.FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return cardErr(err)
		}
		if err := apply(c); err != nil {
			return err
		}
		if err := tx.Update(ctx, c); err != nil {
			return cardErr(err)
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	view, err := toView(*card)
	if err != nil {
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{"card_id": cardID, "status": card.Status}).Info("Card status changed")
	return &models.CardActionResult{Card: view, Message: fmt.Sprintf(message, view.CardNumber)}, card, nil
}

// Delete removes a card permanently
func (s *AdminCardService) Delete(ctx context.Context, cardID int64) (string, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return "", cardErr(err)
	}
	view, err := toView(*card)
	if err != nil {
		return "", err
	}
	if err := s.cards.Delete(ctx, cardID); err != nil {
		return "", cardErr(err)
	}
	s.log.WithField("card_id", cardID).Info("Card deleted")
	return fmt.Sprintf("Card %s deleted", view.CardNumber), nil
}

// GetAll pages through every card
func (s *AdminCardService) GetAll(ctx context.Context, page models.PageRequest) (models.Page[models.CardView], error) {
	cards, err := s.cards.FindAll(ctx, page)
	if err != nil {
		return models.Page[models.CardView]{}, err
	}
	return models.MapPage(cards, toView)
}

// GetUserCards pages through the cards of one user
func (s *AdminCardService) GetUserCards(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.CardView], error) {
	exists, err := s.users.ExistsByID(ctx, userID)
	if err != nil {
		return models.Page[models.CardView]{}, err
	}
	if !exists {
		return models.Page[models.CardView]{}, models.ErrUserNotFound
	}
	cards, err := s.cards.FindByUser(ctx, userID, page)
	if err != nil {
		return models.Page[models.CardView]{}, err
	}
	return models.MapPage(cards, toView)
}

// ExportRegister renders every card as an XML card register
func (s *AdminCardService) ExportRegister(ctx context.Context) ([]byte, error) {
	var views []models.CardView
	req := models.PageRequest{Page: 0, Size: models.MaxPageSize}
	for {
		page, err := s.cards.FindAll(ctx, req)
		if err != nil {
			return nil, err
		}
		batch, err := toViews(page.Content)
		if err != nil {
			return nil, err
		}
		views = append(views, batch...)
		if page.Last || len(page.Content) == 0 {
			break
		}
		req.Page++
	}

	var buf bytes.Buffer
	if err := report.WriteCardRegister(&buf, views, s.now()); err != nil {
		return nil, err
	}
	s.log.WithField("count", len(views)).Info("Card register exported")
	return buf.Bytes(), nil
}
