package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Operation is a pending content-generation call returning the model's text.
type Operation func(ctx context.Context) (string, error)

// Recorder observes how calls resolve.
type Recorder interface {
	Record(name string, outcome Outcome, latency time.Duration)
}

// TextCache stores raw model text for repeatable prompts and collapses concurrent
// identical calls.
type TextCache interface {
	Get(key string) (string, bool)
	Add(key, text string)
	Do(key string, fn func() (string, error)) (string, error)
}

// Guard bounds and normalises calls to a content-generation endpoint.
// It holds no per-call state and is safe for concurrent use.
type Guard struct {
	timeout  time.Duration
	repair   bool
	recorder Recorder
	cache    TextCache
}

// Option configures a Guard.
type Option func(*Guard)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRepair enables jsonrepair for every object and list call.
func WithRepair(enabled bool) Option {
	return func(g *Guard) { g.repair = enabled }
}

// WithRecorder reports each resolved call to r.
func WithRecorder(r Recorder) Option {
	return func(g *Guard) { g.recorder = r }
}

// WithCache enables caching for specs that carry a CacheKey.
func WithCache(c TextCache) Option {
	return func(g *Guard) { g.cache = c }
}

// New constructs a Guard.
func New(opts ...Option) *Guard {
	g := &Guard{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timeout returns the bound applied to each call.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// Call resolves op to a value of the spec's shape or to its fallback. The caller cannot
// tell which; use Resolve when the outcome matters.
func Call[T any](ctx context.Context, g *Guard, spec Spec[T], op Operation) T {
	return Resolve(ctx, g, spec, op).Value
}

// Resolve races op against the guard's timeout, then extracts, parses and shape-checks
// the response. Every failure collapses to the spec's fallback; it never panics.
func Resolve[T any](ctx context.Context, g *Guard, spec Spec[T], op Operation) (res Result[T]) {
	if g == nil {
		g = New()
	}
	if g.repair {
		spec.Repair = true
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = fallback(spec, OutcomeCallFailed, errors.New("guard: recovered from panic"))
		}
		g.observe(spec.Name, spec.Shape, res.Outcome, res.Err, time.Since(start))
	}()

	if op == nil {
		return fallback(spec, OutcomeCallFailed, errors.New("guard: operation must not be nil"))
	}

	key := ""
	if g.cache != nil {
		key = spec.cacheKey()
	}
	if key != "" {
		if text, ok := g.cache.Get(key); ok {
			if cached := Decode(text, spec); !cached.Outcome.IsFallback() {
				return cached
			}
		}
		op = g.shared(key, op)
	}

	text, err := Race(ctx, g.timeout, op)
	if err != nil {
		return fallback(spec, classify(err), err)
	}

	res = Decode(text, spec)
	if key != "" && !res.Outcome.IsFallback() {
		g.cache.Add(key, text)
	}
	return res
}

// shared collapses concurrent calls for key into one upstream call. That call is
// detached from whichever caller started it and bounded by the guard's timeout;
// each caller's own Race still bounds how long that caller waits.
func (g *Guard) shared(key string, op Operation) Operation {
	return func(ctx context.Context) (string, error) {
		return g.cache.Do(key, func() (string, error) {
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
			defer cancel()
			return op(callCtx)
		})
	}
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeCallFailed
	}
}

func (g *Guard) observe(name string, shape Shape, outcome Outcome, err error, latency time.Duration) {
	if g.recorder != nil {
		g.recorder.Record(name, outcome, latency)
	}
	if outcome.IsFallback() {
		slog.Warn("ai call resolved to fallback",
			"op", name,
			"shape", shape.String(),
			"outcome", string(outcome),
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return
	}
	slog.Debug("ai call resolved",
		"op", name,
		"shape", shape.String(),
		"outcome", string(outcome),
		"latency_ms", latency.Milliseconds(),
	)
}
