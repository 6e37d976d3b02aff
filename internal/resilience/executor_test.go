package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errStore = errors.New("store down")

func fastOpts() Options {
	return Options{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		OpenFor:    20 * time.Millisecond,
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	e := New("test", fastOpts())

	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errStore
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, StateClosed, e.State())
}

func TestDo_ExhaustsRetries(t *testing.T) {
	e := New("test", fastOpts())

	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errStore
	})
	require.ErrorIs(t, err, errStore)
	// 1 intento inicial + 3 reintentos
	require.Equal(t, 4, calls)
}

func TestDo_ContextCancelNotRetried(t *testing.T) {
	e := New("test", fastOpts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestBreaker_OpensAfterWindowFailures(t *testing.T) {
	e := New("test", Options{MaxRetries: 1, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond, OpenFor: time.Hour})

	// Llenar la ventana con fallos. Cada Do fallido registra una entrada.
	for i := 0; i < windowSize; i++ {
		_ = e.Do(context.Background(), "op", func(ctx context.Context) error {
			return errStore
		})
	}
	require.Equal(t, StateOpen, e.State())

	// Con el breaker abierto no se toca el store.
	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Equal(t, 0, calls)
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	e := New("test", Options{MaxRetries: 1, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond, OpenFor: 5 * time.Millisecond})

	for i := 0; i < windowSize; i++ {
		_ = e.Do(context.Background(), "op", func(ctx context.Context) error {
			return errStore
		})
	}
	require.Equal(t, StateOpen, e.State())

	// Pasado OpenFor, una llamada de prueba exitosa cierra el breaker.
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateHalfOpen, e.State())

	err := e.Do(context.Background(), "op", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.Equal(t, StateClosed, e.State())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	e := New("test", Options{MaxRetries: 1, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond, OpenFor: 5 * time.Millisecond})

	for i := 0; i < windowSize; i++ {
		_ = e.Do(context.Background(), "op", func(ctx context.Context) error {
			return errStore
		})
	}
	time.Sleep(10 * time.Millisecond)

	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errStore
	})
	require.ErrorIs(t, err, errStore)
	// En half-open no hay retries: una sola llamada de prueba.
	require.Equal(t, 1, calls)
	require.Equal(t, StateOpen, e.State())
}

func TestBackoff_Capped(t *testing.T) {
	e := New("test", Options{BaseDelay: 250 * time.Millisecond, MaxDelay: time.Second})
	require.Equal(t, 250*time.Millisecond, e.backoff(1))
	require.Equal(t, 500*time.Millisecond, e.backoff(2))
	require.Equal(t, time.Second, e.backoff(3))
	require.Equal(t, time.Second, e.backoff(10))
}
