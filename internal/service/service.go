package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/Dan9191/bank-cards/internal/utils"
)

const dateLayout = "2006-01-02"

// Notifier delivers card events to card owners
type Notifier interface {
	NotifyCardEvent(ctx context.Context, event models.CardEvent) error
}

// toView builds the masked projection of a decrypted card
func toView(card models.Card) (models.CardView, error) {
	masked, err := utils.MaskCardNumber(card.Number)
	if err != nil {
		return models.CardView{}, fmt.Errorf("card %d: %w", card.ID, err)
	}
	return models.CardView{
		ID:             card.ID,
		CardNumber:     masked,
		HolderName:     card.HolderName,
		ExpirationDate: card.ExpirationDate.Format(dateLayout),
		Status:         card.Status,
		Balance:        card.Balance,
		UserID:         card.UserID,
	}, nil
}

func toViews(cards []models.Card) ([]models.CardView, error) {
	views := make([]models.CardView, 0, len(cards))
	for _, c := range cards {
		v, err := toView(c)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// cardErr translates storage failures on a card into domain errors
func cardErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return models.ErrCardNotFound
	case errors.Is(err, repository.ErrStaleCard):
		return models.ErrConcurrentCardUpdate
	default:
		return err
	}
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.ErrUserNotFound
	}
	return err
}

// publisher sends card events to owners after the change has been committed.
// Delivery problems are logged and never reach the caller.
type publisher struct {
	users    repository.UserStore
	notifier Notifier
	log      *logrus.Logger
}

func (p *publisher) publish(ctx context.Context, userID int64, event models.CardEvent) {
	if p.notifier == nil {
		return
	}
	entry := p.log.WithFields(logrus.Fields{"user_id": userID, "event": event.Kind})

	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		entry.WithError(err).Warn("Skipping card notification: owner lookup failed")
		return
	}
	if user.Email == "" {
		return
	}
	event.Email = user.Email
	if event.HolderName == "" {
		event.HolderName = user.FullName()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if err := p.notifier.NotifyCardEvent(ctx, event); err != nil {
		entry.WithError(err).Warn("Card notification was not delivered")
	}
}
