package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/Dan9191/bank-cards/internal/apperr"
	"github.com/Dan9191/bank-cards/internal/middleware"
	"github.com/Dan9191/bank-cards/internal/service"
)

var (
	phonePattern    = regexp.MustCompile(`^\d{10}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9!@#$%^&]+$`)
)

const minPasswordLength = 6

type registerRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (req registerRequest) validate() error {
	switch {
	case strings.TrimSpace(req.FirstName) == "":
		return apperr.New(apperr.KindInvalidInput, "first_name must not be blank")
	case strings.TrimSpace(req.LastName) == "":
		return apperr.New(apperr.KindInvalidInput, "last_name must not be blank")
	case !phonePattern.MatchString(req.PhoneNumber):
		return apperr.New(apperr.KindInvalidInput, "phone_number must consist of 10 digits")
	case len(req.Password) < minPasswordLength:
		return apperr.New(apperr.KindInvalidInput, "password must be at least 6 characters long")
	case !passwordPattern.MatchString(req.Password):
		return apperr.New(apperr.KindInvalidInput, "password may contain only latin letters, digits and !@#$%^&")
	}
	return nil
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.Registration{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.PhoneNumber == "" || req.Password == "" {
		h.fail(w, r, apperr.New(apperr.KindInvalidInput, "phone_number and password are required"))
		return
	}

	token, err := h.auth.Login(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer"})
}
