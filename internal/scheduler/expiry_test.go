package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type expirerMock struct {
	mock.Mock
}

func (m *expirerMock) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestExpiryJob_Run(t *testing.T) {
	log, hook := test.NewNullLogger()
	now := time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)
	expirer := &expirerMock{}
	expirer.On("ExpireOverdue", mock.Anything, now).Return(int64(4), nil).Once()

	job, err := NewExpiryJob(expirer, "@daily", log)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	job.Run(context.Background())
	expirer.AssertExpectations(t)
	assert.Equal(t, "Expiry sweep finished", hook.LastEntry().Message)
	assert.Equal(t, int64(4), hook.LastEntry().Data["expired"])
}

func TestExpiryJob_RunFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	expirer := &expirerMock{}
	expirer.On("ExpireOverdue", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()

	job, err := NewExpiryJob(expirer, "0 3 * * *", log)
	require.NoError(t, err)

	job.Run(context.Background())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestNewExpiryJob_InvalidSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := NewExpiryJob(&expirerMock{}, "every tuesday", log)
	assert.ErrorContains(t, err, "invalid expiry sweep schedule")
}

func TestExpiryJob_StartStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	job, err := NewExpiryJob(&expirerMock{}, "@every 1h", log)
	require.NoError(t, err)

	job.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
