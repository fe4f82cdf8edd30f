package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/metrics"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

// ExpirationSweeper records that cards have expired. Its writes go to the
// root card store and commit on their own, outside any caller transaction.
type ExpirationSweeper struct {
	cards   repository.CardStore
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// NewExpirationSweeper creates a sweeper on the root card store
func NewExpirationSweeper(cards repository.CardStore, m *metrics.Metrics, log *logrus.Logger) *ExpirationSweeper {
	return &ExpirationSweeper{cards: cards, metrics: m, log: log}
}

// MarkExpired persists EXPIRED for one card. Repeated calls are harmless
func (s *ExpirationSweeper) MarkExpired(ctx context.Context, cardID int64) error {
	if err := s.cards.UpdateStatus(ctx, cardID, models.CardStatusExpired); err != nil {
		return fmt.Errorf("failed to mark card %d expired: %w", cardID, cardErr(err))
	}
	s.metrics.AddCardsExpired(metrics.ExpiryLazy, 1)
	s.log.WithField("card_id", cardID).Info("Card marked as expired")
	return nil
}

// ExpireOverdue moves every card past its expiration date to EXPIRED
func (s *ExpirationSweeper) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.cards.ExpireOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	s.metrics.AddCardsExpired(metrics.ExpiryScheduled, n)
	s.log.WithField("count", n).Info("Expired overdue cards")
	return n, nil
}

// settle converts a failed operation into its final error. A lapsed card
// found during the operation is marked expired now that the operation's
// transaction, and its row locks, are gone.
func (s *ExpirationSweeper) settle(ctx context.Context, err error) error {
	var lapsed *models.LapsedCardError
	if !errors.As(err, &lapsed) {
		return err
	}
	if sweepErr := s.MarkExpired(ctx, lapsed.CardID); sweepErr != nil {
		s.log.WithField("card_id", lapsed.CardID).WithError(sweepErr).Error("Failed to record card expiry")
		return errors.Join(models.ErrCardExpired, sweepErr)
	}
	return models.ErrCardExpired
}
