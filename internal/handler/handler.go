package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/middleware"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
)

// CardService is the cardholder side of the card engine
type CardService interface {
	Deposit(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error)
	Withdraw(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error)
	Transfer(ctx context.Context, fromID, toID, ownerID int64, amount decimal.Decimal) (*models.TransferReceipt, error)
	ShowBalance(ctx context.Context, cardID, ownerID int64) (*models.Balance, error)
	RequestBlock(ctx context.Context, ownerID, cardID int64, reason string) (*models.BlockRequestResult, error)
	Search(ctx context.Context, ownerID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.CardView], error)
}

// AdminCardService is the administrator side of the card engine
type AdminCardService interface {
	Issue(ctx context.Context, userID int64) (*models.CardView, error)
	ConfirmBlock(ctx context.Context, cardID int64) (*models.CardActionResult, error)
	Activate(ctx context.Context, cardID int64) (*models.CardActionResult, error)
	Delete(ctx context.Context, cardID int64) (string, error)
	GetAll(ctx context.Context, page models.PageRequest) (models.Page[models.CardView], error)
	GetUserCards(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.CardView], error)
	ExportRegister(ctx context.Context) ([]byte, error)
}

// UserService manages user accounts
type UserService interface {
	Register(ctx context.Context, reg service.Registration) (*models.User, error)
	List(ctx context.Context, page models.PageRequest) (models.Page[models.User], error)
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, id int64, upd service.ProfileUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) (string, error)
}

// AuthService issues and verifies access tokens
type AuthService interface {
	Login(ctx context.Context, phone, password string) (string, error)
	middleware.TokenParser
}

// Handler serves the HTTP API
type Handler struct {
	cards   CardService
	admin   AdminCardService
	users   UserService
	auth    AuthService
	metrics http.Handler
	log     *logrus.Logger
}

// NewHandler creates a handler; metrics may be nil to disable /metrics
func NewHandler(cards CardService, admin AdminCardService, users UserService, auth AuthService,
	metrics http.Handler, log *logrus.Logger) *Handler {
	return &Handler{cards: cards, admin: admin, users: users, auth: auth, metrics: metrics, log: log}
}

// Routes builds the router
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(h.log))

	// Public routes
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}

	// Cardholder routes
	cards := r.PathPrefix("/cards").Subrouter()
	cards.Use(middleware.AuthMiddleware(h.auth, h.log))
	cards.HandleFunc("", h.SearchCards).Methods(http.MethodGet)
	cards.HandleFunc("/transfer", h.Transfer).Methods(http.MethodPost)
	cards.HandleFunc("/{id:[0-9]+}/balance", h.ShowBalance).Methods(http.MethodGet)
	cards.HandleFunc("/{id:[0-9]+}/deposit", h.Deposit).Methods(http.MethodPost)
	cards.HandleFunc("/{id:[0-9]+}/withdraw", h.Withdraw).Methods(http.MethodPost)
	cards.HandleFunc("/{id:[0-9]+}/block", h.RequestBlock).Methods(http.MethodPost)

	// Admin routes
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(h.auth, h.log), middleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/cards", h.ListCards).Methods(http.MethodGet)
	admin.HandleFunc("/cards/export", h.ExportCards).Methods(http.MethodGet)
	admin.HandleFunc("/cards/{id:[0-9]+}/block", h.ConfirmBlock).Methods(http.MethodPatch)
	admin.HandleFunc("/cards/{id:[0-9]+}/activate", h.ActivateCard).Methods(http.MethodPatch)
	admin.HandleFunc("/cards/{id:[0-9]+}", h.DeleteCard).Methods(http.MethodDelete)
	admin.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/phone/{phone}", h.GetUserByPhone).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}", h.GetUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}", h.UpdateUser).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id:[0-9]+}", h.DeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id:[0-9]+}/cards", h.IssueCard).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id:[0-9]+}/cards", h.ListUserCards).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "resource not found")
	})
	return r
}

// Health reports that the process is serving
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
