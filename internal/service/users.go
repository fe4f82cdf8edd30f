package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

// Registration is the data needed to create a cardholder account
type Registration struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
	Password    string
}

// ProfileUpdate holds the editable parts of a user profile
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
}

const renameAttempts = 2

// UserService manages user accounts
type UserService struct {
	users repository.UserStore
	cards repository.CardStore
	log   *logrus.Logger
}

// NewUserService initializes the user service
func NewUserService(users repository.UserStore, cards repository.CardStore, log *logrus.Logger) *UserService {
	return &UserService{users: users, cards: cards, log: log}
}

// Register creates a new user with hashed password
func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	exists, err := s.users.ExistsByPhone(ctx, reg.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrPhoneRegistered
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		PhoneNumber:  reg.PhoneNumber,
		Email:        strings.TrimSpace(reg.Email),
		PasswordHash: string(hashedPassword),
		Roles:        []string{models.RoleUser},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, models.ErrPhoneRegistered
		}
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Infof("User registered: %s", user.FullName())
	return user, nil
}

// List pages through all users
func (s *UserService) List(ctx context.Context, page models.PageRequest) (models.Page[models.User], error) {
	return s.users.FindAll(ctx, page)
}

// Get loads a user by id
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	return user, nil
}

// GetByPhone loads a user by phone number
func (s *UserService) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, userErr(err)
	}
	return user, nil
}

// Update changes a user's profile, then rewrites the holder name of every
// card the user owns in a separate transaction.
func (s *UserService) Update(ctx context.Context, id int64, upd ProfileUpdate) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	if v := strings.TrimSpace(upd.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(upd.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(upd.Email); v != "" {
		user.Email = v
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, userErr(err)
	}

	// The profile is already saved; a rename that lost a version race is retried.
	for attempt := 1; ; attempt++ {
		err = s.renameCards(ctx, id, user.FullName())
		if err == nil || !errors.Is(err, models.ErrConcurrentCardUpdate) || attempt == renameAttempts {
			break
		}
	}
	if err != nil {
		s.log.WithField("user_id", id).WithError(err).Warn("Profile saved but card holder names were not updated")
		return nil, fmt.Errorf("failed to rename cards of user %d: %w", id, err)
	}

	s.log.WithField("user_id", id).Info("User updated")
	return user, nil
}

func (s *UserService) renameCards(ctx context.Context, userID int64, holder string) error {
	return s.cards.WithTx(ctx, func(tx repository.CardStore) error {
		cards, err := tx.FindAllByUser(ctx, userID)
		if err != nil {
			return err
		}
		for i := range cards {
			if cards[i].HolderName == holder {
				continue
			}
			cards[i].HolderName = holder
			if err := tx.Update(ctx, &cards[i]); err != nil {
				return cardErr(err)
			}
		}
		return nil
	})
}

// Delete removes a user together with the user's cards
func (s *UserService) Delete(ctx context.Context, id int64) (string, error) {
	if err := s.users.Delete(ctx, id); err != nil {
		return "", userErr(err)
	}
	s.log.WithField("user_id", id).Info("User deleted")
	return fmt.Sprintf("User with ID '%d' was deleted", id), nil
}
