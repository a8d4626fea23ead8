package limiter

import (
	"context"

	"github.com/adrianliechti/forge/pkg/planner"

	"golang.org/x/time/rate"
)

type Planner interface {
	Limiter
	planner.Provider
}

type limitedPlanner struct {
	limiter  *rate.Limiter
	provider planner.Provider
}

func NewPlanner(l *rate.Limiter, p planner.Provider) Planner {
	return &limitedPlanner{
		limiter:  l,
		provider: p,
	}
}

func (p *limitedPlanner) limiterSetup() {
}

func (p *limitedPlanner) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return p.provider.Plan(ctx, req)
}
