package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/config"
	"github.com/Dan9191/bank-cards/internal/models"
)

// Sender handles sending card notifications via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// NotifyCardEvent emails the card owner about a committed card change
func (s *Sender) NotifyCardEvent(ctx context.Context, event models.CardEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := buildCardEmail(s.cfg.SenderEmail, event)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.WithFields(logrus.Fields{"event": event.Kind, "card": event.CardNumber}).
			Errorf("Failed to send email: %v", err)
		return fmt.Errorf("failed to send %s notification: %w", event.Kind, err)
	}

	s.logger.WithField("event", event.Kind).Infof("Email sent: %s", e.Subject)
	return nil
}

func buildCardEmail(from string, event models.CardEvent) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{event.Email}

	body := fmt.Sprintf("Dear %s,\n\n", event.HolderName)
	at := event.At.Format("2006-01-02 15:04:05")

	switch event.Kind {
	case models.CardEventDeposit:
		e.Subject = "Deposit Notification"
		body += fmt.Sprintf(
			"Your card %s has been credited with %s RUB.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s RUB\n",
			event.CardNumber, event.Amount.StringFixed(2), at, event.Balance.StringFixed(2),
		)
	case models.CardEventWithdrawal:
		e.Subject = "Withdrawal Notification"
		body += fmt.Sprintf(
			"An amount of %s RUB has been withdrawn from your card %s.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s RUB\n",
			event.Amount.StringFixed(2), event.CardNumber, at, event.Balance.StringFixed(2),
		)
	case models.CardEventIssued:
		e.Subject = "New Card Issued"
		body += fmt.Sprintf("A new card %s has been issued in your name.\n", event.CardNumber)
	case models.CardEventBlocked:
		e.Subject = "Card Blocked"
		body += fmt.Sprintf("Your card %s has been blocked as you requested.\n", event.CardNumber)
	case models.CardEventActivated:
		e.Subject = "Card Activated"
		body += fmt.Sprintf("Your card %s has been activated.\n", event.CardNumber)
	default:
		e.Subject = "Card Notification"
		body += fmt.Sprintf("There has been a change to your card %s.\n", event.CardNumber)
	}

	body += "\nBest regards,\nBank Cards"
	e.Text = []byte(body)
	return e
}
