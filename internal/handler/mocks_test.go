package handler

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
)

type cardServiceMock struct{ mock.Mock }

func (m *cardServiceMock) Deposit(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error) {
	args := m.Called(ctx, cardID, ownerID, amount)
	receipt, _ := args.Get(0).(*models.FundsReceipt)
	return receipt, args.Error(1)
}

func (m *cardServiceMock) Withdraw(ctx context.Context, cardID, ownerID int64, amount decimal.Decimal) (*models.FundsReceipt, error) {
	args := m.Called(ctx, cardID, ownerID, amount)
	receipt, _ := args.Get(0).(*models.FundsReceipt)
	return receipt, args.Error(1)
}

func (m *cardServiceMock) Transfer(ctx context.Context, fromID, toID, ownerID int64, amount decimal.Decimal) (*models.TransferReceipt, error) {
	args := m.Called(ctx, fromID, toID, ownerID, amount)
	receipt, _ := args.Get(0).(*models.TransferReceipt)
	return receipt, args.Error(1)
}

func (m *cardServiceMock) ShowBalance(ctx context.Context, cardID, ownerID int64) (*models.Balance, error) {
	args := m.Called(ctx, cardID, ownerID)
	balance, _ := args.Get(0).(*models.Balance)
	return balance, args.Error(1)
}

func (m *cardServiceMock) RequestBlock(ctx context.Context, ownerID, cardID int64, reason string) (*models.BlockRequestResult, error) {
	args := m.Called(ctx, ownerID, cardID, reason)
	result, _ := args.Get(0).(*models.BlockRequestResult)
	return result, args.Error(1)
}

func (m *cardServiceMock) Search(ctx context.Context, ownerID int64, filter models.CardFilter, page models.PageRequest) (models.Page[models.CardView], error) {
	args := m.Called(ctx, ownerID, filter, page)
	return args.Get(0).(models.Page[models.CardView]), args.Error(1)
}

type adminServiceMock struct{ mock.Mock }

func (m *adminServiceMock) Issue(ctx context.Context, userID int64) (*models.CardView, error) {
	args := m.Called(ctx, userID)
	view, _ := args.Get(0).(*models.CardView)
	return view, args.Error(1)
}

func (m *adminServiceMock) ConfirmBlock(ctx context.Context, cardID int64) (*models.CardActionResult, error) {
	args := m.Called(ctx, cardID)
	result, _ := args.Get(0).(*models.CardActionResult)
	return result, args.Error(1)
}

func (m *adminServiceMock) Activate(ctx context.Context, cardID int64) (*models.CardActionResult, error) {
	args := m.Called(ctx, cardID)
	result, _ := args.Get(0).(*models.CardActionResult)
	return result, args.Error(1)
}

func (m *adminServiceMock) Delete(ctx context.Context, cardID int64) (string, error) {
	args := m.Called(ctx, cardID)
	return args.String(0), args.Error(1)
}

func (m *adminServiceMock) GetAll(ctx context.Context, page models.PageRequest) (models.Page[models.CardView], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(models.Page[models.CardView]), args.Error(1)
}

func (m *adminServiceMock) GetUserCards(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.CardView], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(models.Page[models.CardView]), args.Error(1)
}

func (m *adminServiceMock) ExportRegister(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	doc, _ := args.Get(0).([]byte)
	return doc, args.Error(1)
}

type userServiceMock struct{ mock.Mock }

func (m *userServiceMock) Register(ctx context.Context, reg service.Registration) (*models.User, error) {
	args := m.Called(ctx, reg)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *userServiceMock) List(ctx context.Context, page models.PageRequest) (models.Page[models.User], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(models.Page[models.User]), args.Error(1)
}

func (m *userServiceMock) Get(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *userServiceMock) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *userServiceMock) Update(ctx context.Context, id int64, upd service.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, id, upd)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *userServiceMock) Delete(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// authStub accepts fixed tokens and a single set of credentials.
type authStub struct{}

var principals = map[string]*models.Principal{
	"user-token":  {UserID: 7, Roles: []string{models.RoleUser}},
	"admin-token": {UserID: 1, Roles: []string{models.RoleAdmin}},
}

func (authStub) Login(ctx context.Context, phone, password string) (string, error) {
	if phone == "9001234567" && password == "secret1" {
		return "user-token", nil
	}
	return "", models.ErrInvalidCredentials
}

func (authStub) ParseToken(token string) (*models.Principal, error) {
	if p, ok := principals[token]; ok {
		return p, nil
	}
	return nil, models.ErrInvalidToken
}
