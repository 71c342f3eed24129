package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_InitializesLazily(t *testing.T) {
	m := Get()
	require.NotNil(t, m)
	assert.Same(t, m, Get())
	assert.NotNil(t, m.BookOperationsTotal)
	assert.NotNil(t, m.LoginRequestsTotal)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestRecordersDoNotPanic(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		ObserveQuery(ctx, "postgres", "select", time.Now(), nil)
		ObserveQuery(ctx, "local", "write", time.Now(), errors.New("disk full"))
		CountBookOperation(ctx, "create", nil)
	})
}
