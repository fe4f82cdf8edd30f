package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/bank-cards/internal/models"
)

func TestExpirationSweeper_MarkExpiredIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "Ivan", "Petrov", "+79990000001")
	card := f.issue(t, user.ID)

	require.NoError(t, f.sweeper.MarkExpired(ctx, card.ID))
	require.NoError(t, f.sweeper.MarkExpired(ctx, card.ID))
	assert.Equal(t, models.CardStatusExpired, f.stored(t, card.ID).Status)

	assert.ErrorIs(t, f.sweeper.MarkExpired(ctx, 999), models.ErrCardNotFound)
}

func TestExpirationSweeper_ExpireOverdue(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "Ivan", "Petrov", "+79990000001")
	lapsed := f.issueLapsed(t, user.ID)
	current := f.issue(t, user.ID)

	n, err := f.sweeper.ExpireOverdue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.CardStatusExpired, f.stored(t, lapsed.ID).Status)
	assert.Equal(t, models.CardStatusActive, f.stored(t, current.ID).Status)

	n, err = f.sweeper.ExpireOverdue(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, n)
}
