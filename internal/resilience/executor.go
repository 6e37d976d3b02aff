// Package resilience implementa el decorator de retry + circuit breaker que
// envuelve todas las llamadas al data store de los services.
//
// Parámetros (fijos en construcción): 3 reintentos, 250ms de delay base con
// backoff exponencial, 1000ms de delay máximo, y un breaker que abre cuando
// al menos el 50% de una ventana deslizante de 50 llamadas falló. El estado
// del breaker está protegido por mutex y es seguro ante callers concurrentes.
package resilience

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
)

// ErrCircuitOpen se retorna sin tocar el store mientras el breaker esté abierto.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// windowSize es la cantidad de llamadas consideradas para abrir el breaker.
const windowSize = 50

// Options controla el executor. Los ceros toman los defaults del paquete.
type Options struct {
	MaxRetries int           // default 3
	BaseDelay  time.Duration // default 250ms
	MaxDelay   time.Duration // default 1s
	// FailurePercent abre el breaker cuando la ventana completa supera
	// este porcentaje de fallos. Default 50.
	FailurePercent int
	// OpenFor es cuánto permanece abierto el breaker antes de pasar a
	// half-open y permitir una llamada de prueba. Default 30s.
	OpenFor time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.BaseDelay == 0 {
		o.BaseDelay = 250 * time.Millisecond
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = time.Second
	}
	if o.FailurePercent == 0 {
		o.FailurePercent = 50
	}
	if o.OpenFor == 0 {
		o.OpenFor = 30 * time.Second
	}
	return o
}

// State del breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Executor decora operaciones contra el store con retry y circuit breaker.
type Executor struct {
	name string
	opts Options

	mu       sync.Mutex
	window   [windowSize]bool // true = fallo
	idx      int
	filled   int
	state    State
	openedAt time.Time
}

// New crea un Executor con nombre (aparece en logs y métricas).
func New(name string, opts Options) *Executor {
	return &Executor{
		name:  name,
		opts:  opts.withDefaults(),
		state: StateClosed,
	}
}

// Name retorna el nombre del executor.
func (e *Executor) Name() string { return e.name }

// State retorna el estado actual del breaker.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(time.Now())
}

func (e *Executor) stateLocked(now time.Time) State {
	if e.state == StateOpen && now.Sub(e.openedAt) >= e.opts.OpenFor {
		e.state = StateHalfOpen
	}
	return e.state
}

// Do ejecuta fn con retry + breaker. Retorna ErrCircuitOpen si el breaker
// está abierto, o el último error de fn si se agotaron los reintentos.
// El contexto cancela tanto la operación como las esperas de backoff.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	now := time.Now()
	e.mu.Lock()
	st := e.stateLocked(now)
	if st == StateOpen {
		e.mu.Unlock()
		return ErrCircuitOpen
	}
	halfOpen := st == StateHalfOpen
	e.mu.Unlock()

	var lastErr error
	attempts := e.opts.MaxRetries + 1
	if halfOpen {
		// En half-open se permite una única llamada de prueba, sin retries.
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, e.backoff(attempt)); err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			e.record(false, halfOpen)
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			// Cancelación no cuenta como fallo del store.
			return lastErr
		}
		logger.From(ctx).Warn("store call failed",
			logger.Component("resilience."+e.name),
			logger.Op(op),
			logger.Int("attempt", attempt+1),
			logger.Err(lastErr),
		)
	}

	e.record(true, halfOpen)
	return lastErr
}

// backoff calcula el delay exponencial acotado para el intento dado.
func (e *Executor) backoff(attempt int) time.Duration {
	d := time.Duration(float64(e.opts.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if d > e.opts.MaxDelay {
		d = e.opts.MaxDelay
	}
	return d
}

// record anota el resultado en la ventana y actualiza el estado del breaker.
func (e *Executor) record(failed, wasHalfOpen bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if wasHalfOpen {
		if failed {
			e.state = StateOpen
			e.openedAt = time.Now()
		} else {
			// La llamada de prueba salió bien: cerrar y resetear ventana.
			e.state = StateClosed
			e.idx, e.filled = 0, 0
			e.window = [windowSize]bool{}
		}
		return
	}

	e.window[e.idx] = failed
	e.idx = (e.idx + 1) % windowSize
	if e.filled < windowSize {
		e.filled++
	}

	// Solo se evalúa apertura con la ventana completa.
	if e.filled < windowSize {
		return
	}
	failures := 0
	for _, f := range e.window {
		if f {
			failures++
		}
	}
	if failures*100 >= e.opts.FailurePercent*windowSize {
		e.state = StateOpen
		e.openedAt = time.Now()
		logger.L().Warn("circuit opened",
			logger.Component("resilience."+e.name),
			logger.Int("failures_in_window", failures),
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
