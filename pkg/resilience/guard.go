package resilience

import "context"

// Guard combines a circuit breaker and a retry policy around one external
// dependency. One Guard instance per dependency, owned by the composition
// root, never a package-level singleton.
type Guard struct {
	breaker     *Breaker
	policy      RetryPolicy
	recoverable func(error) bool
}

func NewGuard(breaker *Breaker, policy RetryPolicy, recoverable func(error) bool) *Guard {
	return &Guard{breaker: breaker, policy: policy, recoverable: recoverable}
}

// Do executes op through the breaker with retries. A rejected call returns
// ErrOpen without touching the dependency.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := g.breaker.Allow(); err != nil {
		return err
	}
	err := Retry(ctx, g.policy, g.recoverable, op)
	if err != nil {
		g.breaker.RecordFailure(err)
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}

func (g *Guard) State() State { return g.breaker.State() }
