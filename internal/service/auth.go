package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

// Claims are the JWT claims issued at login
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies access tokens
type AuthService struct {
	users  repository.UserStore
	secret []byte
	ttl    time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

// NewAuthService initializes the auth service
func NewAuthService(users repository.UserStore, secret string, ttl time.Duration, log *logrus.Logger) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl, log: log, now: time.Now}
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, phone, password string) (string, error) {
	user, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return "", models.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles: user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("User logged in")
	return tokenString, nil
}

// ParseToken verifies a token and returns its principal
func (s *AuthService) ParseToken(tokenString string) (*models.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	return &models.Principal{UserID: userID, Roles: claims.Roles}, nil
}
