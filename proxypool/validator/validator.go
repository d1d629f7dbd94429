package validator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

// DefaultConcurrency is the number of probes allowed in flight when the
// caller does not specify a limit.
const DefaultConcurrency = 50

// Checker performs one liveness check. *Prober is the production implementation.
type Checker interface {
	Probe(ctx context.Context, ep model.Endpoint) model.Outcome
}

// Validate dispatches one probe per endpoint with at most limit probes in
// flight and returns the outcomes in completion order.
//
// The channel yields exactly set.Len() outcomes and is then closed. Once ctx
// is done no further endpoint is started, results of in-flight probes are
// dropped, and the channel is closed as soon as those probes return.
func Validate(ctx context.Context, set model.EndpointSet, limit int, checker Checker) <-chan model.Outcome {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	endpoints := set.Endpoints()

	buffer := limit
	if len(endpoints) < buffer {
		buffer = len(endpoints)
	}
	results := make(chan model.Outcome, buffer)

	runID := uuid.NewString()
	l := logger.WithComponent("ProxyPool/Validator").With().Str("run_id", runID).Logger()
	l.Info().Int("count", len(endpoints)).Int("concurrency", limit).Msg("Starting validation run...")

	go func() {
		defer close(results)

		sem := semaphore.NewWeighted(int64(limit))
		var wg sync.WaitGroup
		var reachable, started atomic.Int64

		for _, ep := range endpoints {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			if ctx.Err() != nil {
				sem.Release(1)
				break
			}
			started.Add(1)
			wg.Add(1)
			go func(ep model.Endpoint) {
				defer wg.Done()
				defer sem.Release(1)

				out := checker.Probe(ctx, ep)
				if out.Reachable {
					reachable.Add(1)
				}
				l.Debug().
					Str("proxy", ep.String()).
					Bool("reachable", out.Reachable).
					Str("failure", out.Failure.String()).
					Dur("latency", out.Latency).
					Msg("Probe finished.")

				select {
				case results <- out:
				case <-ctx.Done():
				}
			}(ep)
		}

		wg.Wait()
		if ctx.Err() != nil {
			l.Warn().
				Int64("started", started.Load()).
				Int("total", len(endpoints)).
				Msg("Validation run canceled.")
			return
		}
		l.Info().Int64("reachable", reachable.Load()).Int("total", len(endpoints)).Msg("Validation run finished.")
	}()

	return results
}

// Engine binds a Checker and a concurrency limit for repeated runs.
type Engine struct {
	checker Checker
	limit   int
}

// NewEngine returns an Engine. limit <= 0 selects DefaultConcurrency.
func NewEngine(checker Checker, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Engine{checker: checker, limit: limit}
}

// Limit returns the configured concurrency limit.
func (e *Engine) Limit() int {
	return e.limit
}

// Validate runs Validate with the engine's checker and limit.
func (e *Engine) Validate(ctx context.Context, set model.EndpointSet) <-chan model.Outcome {
	return Validate(ctx, set, e.limit, e.checker)
}
