package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.userSvc.Register(ctx, Registration{
		FirstName: " Ivan ", LastName: "Petrov", PhoneNumber: "+79990000001", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ivan", user.FirstName)
	assert.Equal(t, []string{models.RoleUser}, user.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	_, err = f.userSvc.Register(ctx, Registration{FirstName: "Other", LastName: "Person",
		PhoneNumber: "+79990000001", Password: "x"})
	assert.ErrorIs(t, err, models.ErrPhoneRegistered)
}

func TestUserService_Lookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ivan := f.addUser(t, "Ivan", "Petrov", "+79990000001")
	f.addUser(t, "Anna", "Smirnova", "+79990000002")

	got, err := f.userSvc.Get(ctx, ivan.ID)
	require.NoError(t, err)
	assert.Equal(t, "+79990000001", got.PhoneNumber)

	got, err = f.userSvc.GetByPhone(ctx, "+79990000002")
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)

	_, err = f.userSvc.Get(ctx, 404)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = f.userSvc.GetByPhone(ctx, "+70000000000")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	page, err := f.userSvc.List(ctx, models.PageRequest{Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
}

func TestUserService_UpdateRenamesCards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ivan", "Petrov", "+79990000001")
	card := f.issue(t, user.ID)
	_, err := f.cardSvc.Deposit(ctx, card.ID, user.ID, money("10"))
	require.NoError(t, err)

	updated, err := f.userSvc.Update(ctx, user.ID, ProfileUpdate{LastName: "Sidorov", Email: "ivan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ivan Sidorov", updated.FullName())
	assert.Equal(t, "ivan@example.com", updated.Email)

	page, err := f.cardSvc.Search(ctx, user.ID, models.CardFilter{}, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Ivan Sidorov", page.Content[0].HolderName)
	assert.True(t, money("10").Equal(page.Content[0].Balance))

	_, err = f.userSvc.Update(ctx, 404, ProfileUpdate{FirstName: "X"})
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestUserService_UpdateRetriesLostCardRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ivan", "Petrov", "+79990000001")
	f.issue(t, user.ID)

	races := 1
	f.mem.UpdateHook = func(models.Card) error {
		if races > 0 {
			races--
			return repository.ErrStaleCard
		}
		return nil
	}

	_, err := f.userSvc.Update(ctx, user.ID, ProfileUpdate{LastName: "Sidorov"})
	require.NoError(t, err)

	page, err := f.cardSvc.Search(ctx, user.ID, models.CardFilter{}, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Ivan Sidorov", page.Content[0].HolderName)
}

func TestUserService_UpdateReportsUnrenamedCards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ivan", "Petrov", "+79990000001")
	f.issue(t, user.ID)

	f.mem.UpdateHook = func(models.Card) error { return repository.ErrStaleCard }

	_, err := f.userSvc.Update(ctx, user.ID, ProfileUpdate{LastName: "Sidorov"})
	assert.ErrorIs(t, err, models.ErrConcurrentCardUpdate)
	assert.Contains(t, messages(f), "Profile saved but card holder names were not updated")

	saved, err := f.userSvc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sidorov", saved.LastName)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "Ivan", "Petrov", "+79990000001")

	msg, err := f.userSvc.Delete(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "User with ID '1' was deleted", msg)

	_, err = f.userSvc.Delete(context.Background(), user.ID)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}
