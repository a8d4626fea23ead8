package config

import (
	"context"
	"errors"
	"strings"

	"github.com/adrianliechti/forge/pkg/otel"
	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/store"
	"github.com/adrianliechti/forge/pkg/store/memory"
	"github.com/adrianliechti/forge/pkg/store/postgres"
	"github.com/adrianliechti/forge/pkg/store/redis"
)

type storeConfig struct {
	Type string `yaml:"type"`

	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type overlayConfig struct {
	ResolveThreshold *float64 `yaml:"resolve_threshold"`

	MaskPadding *float64 `yaml:"mask_padding"`
	MaskColor   string   `yaml:"mask_color"`
}

func (cfg *Config) registerStore(ctx context.Context, f *configFile) error {
	s, err := cfg.createStore(ctx, f.Store)

	if err != nil {
		return err
	}

	name := strings.ToLower(f.Store.Type)

	if name == "" {
		name = "memory"
	}

	cfg.Store = otel.NewStore(name, s)

	return nil
}

func (cfg *Config) createStore(ctx context.Context, c storeConfig) (store.Provider, error) {
	switch strings.ToLower(c.Type) {
	case "memory", "":
		return memory.New(), nil

	case "redis":
		var options []redis.Option

		if c.Prefix != "" {
			options = append(options, redis.WithPrefix(c.Prefix))
		}

		s, err := redis.New(c.URL, options...)

		if err != nil {
			return nil, err
		}

		cfg.closers = append(cfg.closers, s.Close)

		return s, nil

	case "postgres", "postgresql":
		s, err := postgres.New(ctx, c.URL)

		if err != nil {
			return nil, err
		}

		cfg.closers = append(cfg.closers, func() error {
			s.Close()
			return nil
		})

		return s, nil

	default:
		return nil, errors.New("invalid store type: " + c.Type)
	}
}

func (cfg *Config) registerOverlay(f *configFile) error {
	var options []overlay.Option

	if t := f.Overlay.ResolveThreshold; t != nil {
		options = append(options, overlay.WithResolveThreshold(*t))
	}

	if f.Overlay.MaskPadding != nil || f.Overlay.MaskColor != "" {
		padding := overlay.DefaultMaskPadding

		if f.Overlay.MaskPadding != nil {
			padding = *f.Overlay.MaskPadding
		}

		options = append(options, overlay.WithMask(padding, f.Overlay.MaskColor))
	}

	s, err := overlay.New(cfg.Store, options...)

	if err != nil {
		return err
	}

	cfg.Overlay = s

	return nil
}
