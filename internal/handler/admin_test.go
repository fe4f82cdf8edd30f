package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
)

func TestIssueCard(t *testing.T) {
	h := newHarness(t)
	h.admin.On("Issue", mock.Anything, int64(3)).
		Return(&models.CardView{ID: 11, CardNumber: "**** **** **** 4242", Status: models.CardStatusActive, UserID: 3}, nil)
	h.admin.On("Issue", mock.Anything, int64(1)).Return(nil, models.ErrAdminCardholder)
	h.admin.On("Issue", mock.Anything, int64(404)).Return(nil, models.ErrUserNotFound)

	rec := h.do(http.MethodPost, "/admin/users/3/cards", "admin-token", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "**** **** **** 4242", decodeBody(t, rec)["card_number"])

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/admin/users/1/cards", "admin-token", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/admin/users/404/cards", "admin-token", "").Code)
}

func TestCardStatusTransitions(t *testing.T) {
	h := newHarness(t)
	h.admin.On("ConfirmBlock", mock.Anything, int64(5)).
		Return(&models.CardActionResult{Message: "Card **** **** **** 4242 blocked"}, nil)
	h.admin.On("ConfirmBlock", mock.Anything, int64(6)).Return(nil, models.ErrBlockNotRequested)
	h.admin.On("Activate", mock.Anything, int64(5)).
		Return(&models.CardActionResult{Message: "Card **** **** **** 4242 activated"}, nil)

	rec := h.do(http.MethodPatch, "/admin/cards/5/block", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Card **** **** **** 4242 blocked", decodeBody(t, rec)["message"])

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/admin/cards/6/block", "admin-token", "").Code)

	rec = h.do(http.MethodPatch, "/admin/cards/5/activate", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Card **** **** **** 4242 activated", decodeBody(t, rec)["message"])
}

func TestDeleteCard(t *testing.T) {
	h := newHarness(t)
	h.admin.On("Delete", mock.Anything, int64(5)).Return("Card **** **** **** 4242 deleted", nil)

	rec := h.do(http.MethodDelete, "/admin/cards/5", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Card **** **** **** 4242 deleted", decodeBody(t, rec)["message"])
}

func TestListCards(t *testing.T) {
	h := newHarness(t)
	h.admin.On("GetAll", mock.Anything, models.PageRequest{Page: 0, Size: models.DefaultPageSize}).
		Return(models.Page[models.CardView]{Content: []models.CardView{{ID: 1}, {ID: 2}}, TotalElements: 2, TotalPages: 1, Last: true}, nil)
	h.admin.On("GetUserCards", mock.Anything, int64(3), models.PageRequest{Page: 2, Size: 5}).
		Return(models.Page[models.CardView]{Content: []models.CardView{}, Page: 2, Size: 5}, nil)

	rec := h.do(http.MethodGet, "/admin/cards", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["content"], 2)

	rec = h.do(http.MethodGet, "/admin/users/3/cards?page=2&size=5", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["page"])
}

func TestExportCards(t *testing.T) {
	h := newHarness(t)
	h.admin.On("ExportRegister", mock.Anything).Return([]byte(`<CardRegister count="0"/>`), nil)

	rec := h.do(http.MethodGet, "/admin/cards/export", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, `<CardRegister count="0"/>`, rec.Body.String())
}

func TestUserAdministration(t *testing.T) {
	h := newHarness(t)
	user := &models.User{ID: 3, FirstName: "Ivan", LastName: "Petrov", PhoneNumber: "9001234567"}
	h.users.On("List", mock.Anything, models.PageRequest{Page: 0, Size: models.DefaultPageSize}).
		Return(models.Page[models.User]{Content: []models.User{*user}, TotalElements: 1, TotalPages: 1, Last: true}, nil)
	h.users.On("Get", mock.Anything, int64(3)).Return(user, nil)
	h.users.On("Get", mock.Anything, int64(4)).Return(nil, models.ErrUserNotFound)
	h.users.On("GetByPhone", mock.Anything, "9001234567").Return(user, nil)
	h.users.On("Update", mock.Anything, int64(3), service.ProfileUpdate{FirstName: "Ioann"}).
		Return(&models.User{ID: 3, FirstName: "Ioann", LastName: "Petrov"}, nil)
	h.users.On("Delete", mock.Anything, int64(3)).Return("User with ID '3' was deleted", nil)

	rec := h.do(http.MethodGet, "/admin/users", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["content"], 1)

	rec = h.do(http.MethodGet, "/admin/users/3", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9001234567", decodeBody(t, rec)["phone_number"])

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/admin/users/4", "admin-token", "").Code)

	rec = h.do(http.MethodGet, "/admin/users/phone/9001234567", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["id"])

	rec = h.do(http.MethodPut, "/admin/users/3", "admin-token", `{"first_name":"Ioann"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ioann", decodeBody(t, rec)["first_name"])

	rec = h.do(http.MethodDelete, "/admin/users/3", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User with ID '3' was deleted", decodeBody(t, rec)["message"])
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/accounts", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "resource not found", decodeBody(t, rec)["error"])
}
