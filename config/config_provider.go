package config

import (
	"context"
	"errors"
	"strings"

	"github.com/adrianliechti/forge/pkg/limiter"
	"github.com/adrianliechti/forge/pkg/otel"
	"github.com/adrianliechti/forge/pkg/provider"
	"github.com/adrianliechti/forge/pkg/provider/anthropic"
	"github.com/adrianliechti/forge/pkg/provider/bedrock"
	"github.com/adrianliechti/forge/pkg/provider/openai"

	"gopkg.in/yaml.v3"
)

type providerConfig struct {
	Type string `yaml:"type"`

	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	Region string `yaml:"region"`

	Limit *int `yaml:"limit"`

	Models yaml.Node `yaml:"models"`
}

type modelConfig struct {
	ID string `yaml:"id"`

	Limit *int `yaml:"limit"`
}

func (cfg *Config) RegisterCompleter(id string, p provider.Completer) {
	if cfg.completer == nil {
		cfg.completer = make(map[string]provider.Completer)
	}

	if _, ok := cfg.completer[""]; !ok {
		cfg.completer[""] = p
	}

	cfg.completer[id] = p
}

func (cfg *Config) Completer(id string) (provider.Completer, error) {
	if cfg.completer != nil {
		if c, ok := cfg.completer[id]; ok {
			return c, nil
		}
	}

	return nil, errors.New("completer not found: " + id)
}

func (cfg *Config) registerProviders(ctx context.Context, f *configFile) error {
	for _, p := range f.Providers {
		if p.Models.IsZero() {
			continue
		}

		var models map[string]modelConfig

		if err := p.Models.Decode(&models); err != nil {
			return err
		}

		for _, node := range p.Models.Content {
			id := node.Value

			m, ok := models[id]

			if !ok {
				continue
			}

			model := m.ID

			if model == "" {
				model = id
			}

			limit := m.Limit

			if limit == nil {
				limit = p.Limit
			}

			completer, err := createCompleter(ctx, p, model)

			if err != nil {
				return err
			}

			if _, ok := completer.(limiter.Completer); !ok {
				completer = limiter.NewCompleter(createLimiter(limit), completer)
			}

			if _, ok := completer.(otel.Completer); !ok {
				completer = otel.NewCompleter(strings.ToLower(p.Type), model, completer)
			}

			cfg.RegisterCompleter(id, completer)
		}
	}

	return nil
}

func createCompleter(ctx context.Context, cfg providerConfig, model string) (provider.Completer, error) {
	switch strings.ToLower(cfg.Type) {
	case "openai":
		return openaiCompleter(cfg, model)

	case "anthropic":
		return anthropicCompleter(cfg, model)

	case "bedrock":
		return bedrockCompleter(ctx, cfg, model)

	default:
		return nil, errors.New("invalid completer type: " + cfg.Type)
	}
}

func openaiCompleter(cfg providerConfig, model string) (provider.Completer, error) {
	var options []openai.Option

	if cfg.Token != "" {
		options = append(options, openai.WithToken(cfg.Token))
	}

	return openai.NewCompleter(cfg.URL, model, options...)
}

func anthropicCompleter(cfg providerConfig, model string) (provider.Completer, error) {
	var options []anthropic.Option

	if cfg.Token != "" {
		options = append(options, anthropic.WithToken(cfg.Token))
	}

	return anthropic.NewCompleter(cfg.URL, model, options...)
}

func bedrockCompleter(ctx context.Context, cfg providerConfig, model string) (provider.Completer, error) {
	var options []bedrock.Option

	if cfg.Region != "" {
		options = append(options, bedrock.WithRegion(cfg.Region))
	}

	return bedrock.NewCompleter(ctx, model, options...)
}
