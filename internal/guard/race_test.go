package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRace_OperationWins(t *testing.T) {
	got, err := Race(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestRace_OperationErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	_, err := Race(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRace_TimerWinsAgainstStuckOperation(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := Race(context.Background(), 30*time.Millisecond, func(ctx context.Context) (string, error) {
		<-release
		return "too late", nil
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, time.Second)
}

func TestRace_CancelsOperationContextOnTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := Race(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled after timeout")
	}
}

func TestRace_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	_, err := Race(ctx, time.Second, func(context.Context) (string, error) {
		<-release
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRace_PanicBecomesError(t *testing.T) {
	_, err := Race(context.Background(), time.Second, func(context.Context) (string, error) {
		panic("provider exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider exploded")
}

func TestRace_NilOperation(t *testing.T) {
	_, err := Race[string](context.Background(), time.Second, nil)
	assert.Error(t, err)
}
