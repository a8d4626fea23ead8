package config

import (
	"errors"
	"strings"
	"time"

	"github.com/adrianliechti/forge/pkg/limiter"
	"github.com/adrianliechti/forge/pkg/otel"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/planner/custom"
	"github.com/adrianliechti/forge/pkg/planner/llm"
	"github.com/adrianliechti/forge/pkg/planner/router"
	"github.com/adrianliechti/forge/pkg/provider"

	"golang.org/x/time/rate"
)

func (cfg *Config) RegisterPlanner(id string, p planner.Provider) {
	if cfg.planners == nil {
		cfg.planners = make(map[string]planner.Provider)
	}

	if _, ok := cfg.planners[""]; !ok {
		cfg.planners[""] = p
	}

	cfg.planners[id] = p
}

func (cfg *Config) Planner(id string) (planner.Provider, error) {
	if cfg.planners != nil {
		if p, ok := cfg.planners[id]; ok {
			return p, nil
		}
	}

	return nil, errors.New("planner not found: " + id)
}

type plannerConfig struct {
	Type string `yaml:"type"`

	URL   string `yaml:"url"`
	Model string `yaml:"model"`

	Attempts    *int     `yaml:"attempts"`
	Temperature *float32 `yaml:"temperature"`

	Limit *int `yaml:"limit"`

	Planners []string `yaml:"planners"`

	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

type plannerContext struct {
	Completer provider.Completer

	Planners []planner.Provider

	Limiter *rate.Limiter
}

func (cfg *Config) registerPlanners(f *configFile) error {
	if f.Planners.IsZero() {
		return nil
	}

	var configs map[string]plannerConfig

	if err := f.Planners.Decode(&configs); err != nil {
		return err
	}

	for _, node := range f.Planners.Content {
		id := node.Value

		config, ok := configs[node.Value]

		if !ok {
			continue
		}

		context := plannerContext{
			Limiter: createLimiter(config.Limit),
		}

		if config.Type == "llm" || config.Type == "" {
			p, err := cfg.Completer(config.Model)

			if err != nil {
				return err
			}

			context.Completer = p
		}

		for _, name := range config.Planners {
			p, err := cfg.Planner(name)

			if err != nil {
				return err
			}

			context.Planners = append(context.Planners, p)
		}

		planner, err := createPlanner(config, context)

		if err != nil {
			return err
		}

		if _, ok := planner.(limiter.Planner); !ok {
			planner = limiter.NewPlanner(context.Limiter, planner)
		}

		if _, ok := planner.(otel.Planner); !ok {
			planner = otel.NewPlanner(id, planner)
		}

		cfg.RegisterPlanner(id, planner)
	}

	return nil
}

func createPlanner(cfg plannerConfig, context plannerContext) (planner.Provider, error) {
	switch strings.ToLower(cfg.Type) {
	case "llm", "":
		return llmPlanner(cfg, context)

	case "custom":
		return customPlanner(cfg, context)

	case "router":
		return routerPlanner(cfg, context)

	default:
		return nil, errors.New("invalid planner type: " + cfg.Type)
	}
}

func llmPlanner(cfg plannerConfig, context plannerContext) (planner.Provider, error) {
	var options []llm.Option

	if cfg.Attempts != nil {
		options = append(options, llm.WithAttempts(*cfg.Attempts))
	}

	if cfg.Temperature != nil {
		options = append(options, llm.WithTemperature(*cfg.Temperature))
	}

	return llm.New(context.Completer, options...)
}

func customPlanner(cfg plannerConfig, context plannerContext) (planner.Provider, error) {
	return custom.New(cfg.URL)
}

func routerPlanner(cfg plannerConfig, context plannerContext) (planner.Provider, error) {
	var options []router.Option

	if cfg.FailureThreshold > 0 {
		options = append(options, router.WithFailureThreshold(cfg.FailureThreshold))
	}

	if cfg.RecoveryTimeout > 0 {
		options = append(options, router.WithRecoveryTimeout(cfg.RecoveryTimeout))
	}

	return router.New(context.Planners, options...)
}
