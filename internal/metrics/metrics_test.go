package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveFundsOperation("deposit", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveFundsOperation("deposit", OutcomeSuccess, 5*time.Millisecond)
	m.ObserveFundsOperation("withdraw", OutcomeRejected, time.Millisecond)
	m.IncCardsIssued()
	m.AddCardsExpired(ExpiryScheduled, 3)
	m.AddCardsExpired(ExpiryLazy, 0)
	m.IncNumberCollision()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fundsOps.WithLabelValues("deposit", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fundsOps.WithLabelValues("withdraw", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cardsIssued))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cardsExpired.WithLabelValues(ExpiryScheduled)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.cardsExpired.WithLabelValues(ExpiryLazy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.numberCollisions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFundsOperation("deposit", OutcomeError, time.Second)
		m.IncCardsIssued()
		m.AddCardsExpired(ExpiryLazy, 1)
		m.IncNumberCollision()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncCardsIssued()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bank_cards_issued_total 1")
}
