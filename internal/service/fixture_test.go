package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/bank-cards/internal/metrics"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/Dan9191/bank-cards/internal/repository/memstore"
	"github.com/Dan9191/bank-cards/internal/utils"
)

var today = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyCardEvent(ctx context.Context, event models.CardEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fixture struct {
	mem      *memstore.CardStore
	cards    repository.CardStore
	users    *memstore.UserStore
	cipher   *utils.FieldCipher
	notifier *notifierMock
	metrics  *metrics.Metrics
	log      *logrus.Logger
	hook     *test.Hook

	sweeper *ExpirationSweeper
	cardSvc *CardService
	admin   *AdminCardService
	userSvc *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cipher, err := utils.NewFieldCipher("service-test-secret")
	require.NoError(t, err)
	log, hook := test.NewNullLogger()

	f := &fixture{
		mem:      memstore.NewCardStore(),
		users:    memstore.NewUserStore(),
		cipher:   cipher,
		notifier: &notifierMock{},
		metrics:  metrics.New(),
		log:      log,
		hook:     hook,
	}
	f.cards = repository.NewEncryptedCardStore(f.mem, cipher)
	f.sweeper = NewExpirationSweeper(f.cards, f.metrics, log)
	f.cardSvc = NewCardService(f.cards, f.users, f.sweeper, f.notifier, f.metrics, log)
	f.cardSvc.now = func() time.Time { return today }
	f.admin = NewAdminCardService(f.cards, f.users, cipher, IssueOptions{Prefix: "4000", MaxAttempts: 5},
		f.notifier, f.metrics, log)
	f.admin.now = func() time.Time { return today }
	f.userSvc = NewUserService(f.users, f.cards, log)
	return f
}

// addUser stores a user directly. Users without email get no notifications.
func (f *fixture) addUser(t *testing.T, first, last, phone string, roles ...string) *models.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	u := &models.User{FirstName: first, LastName: last, PhoneNumber: phone, PasswordHash: "x", Roles: roles}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) issue(t *testing.T, userID int64) models.CardView {
	t.Helper()
	view, err := f.admin.Issue(context.Background(), userID)
	require.NoError(t, err)
	return *view
}

// issueLapsed issues a card whose expiration date passed a year ago.
func (f *fixture) issueLapsed(t *testing.T, userID int64) models.CardView {
	t.Helper()
	f.admin.now = func() time.Time { return today.AddDate(-models.CardValidityYears-1, 0, 0) }
	defer func() { f.admin.now = func() time.Time { return today } }()
	return f.issue(t, userID)
}

func (f *fixture) stored(t *testing.T, id int64) models.Card {
	t.Helper()
	c, ok := f.mem.Get(id)
	require.True(t, ok, "card %d not stored", id)
	return c
}

// sequence returns a generator yielding the given numbers in order.
func sequence(numbers ...string) func(string, int) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(string, int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n := numbers[i%len(numbers)]
		i++
		return n, nil
	}
}

func messages(f *fixture) []string {
	var out []string
	for _, e := range f.hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}
