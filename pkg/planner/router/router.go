package router

import (
	"context"
	"errors"
	"time"

	"github.com/adrianliechti/forge/pkg/planner"
)

var _ planner.Provider = (*Planner)(nil)

var ErrUnavailable = errors.New("all planners are unavailable")

// Planner tries its planners in order and skips those whose circuit is open.
// A planner that keeps failing is taken out of rotation until the recovery
// timeout has passed, then gets a single probe request.
type Planner struct {
	planners []planner.Provider
	health   []*health

	threshold int
	recovery  time.Duration

	now func() time.Time
}

type Option func(*Planner)

func WithFailureThreshold(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.threshold = n
		}
	}
}

func WithRecoveryTimeout(d time.Duration) Option {
	return func(p *Planner) {
		if d > 0 {
			p.recovery = d
		}
	}
}

func New(planners []planner.Provider, options ...Option) (*Planner, error) {
	if len(planners) == 0 {
		return nil, errors.New("at least one planner is required")
	}

	p := &Planner{
		planners: planners,
		health:   make([]*health, len(planners)),

		threshold: DefaultFailureThreshold,
		recovery:  DefaultRecoveryTimeout,

		now: time.Now,
	}

	for i := range p.health {
		p.health[i] = &health{}
	}

	for _, option := range options {
		option(p)
	}

	return p, nil
}

func (p *Planner) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	var errs []error

	for i, target := range p.planners {
		h := p.health[i]

		if !h.acquire(p.now(), p.recovery) {
			continue
		}

		plan, err := target.Plan(ctx, req)

		if err == nil {
			h.success()
			return plan, nil
		}

		if ctx.Err() != nil {
			h.release()
			return nil, err
		}

		h.failure(p.now(), p.threshold)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrUnavailable
	}

	return nil, errors.Join(errs...)
}

// Available returns how many planners currently accept requests.
func (p *Planner) Available() int {
	var count int

	for _, h := range p.health {
		if h.available(p.now(), p.recovery) {
			count++
		}
	}

	return count
}
