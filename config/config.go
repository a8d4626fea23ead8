package config

import (
	"bytes"
	"context"
	"os"

	"github.com/adrianliechti/forge/pkg/auth"
	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/provider"
	"github.com/adrianliechti/forge/pkg/store"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address string

	Authorizers []auth.Provider

	Store   store.Provider
	Overlay *overlay.Service

	completer map[string]provider.Completer
	planners  map[string]planner.Provider

	closers []func() error
}

func Parse(ctx context.Context, path string) (*Config, error) {
	file, err := parseFile(path)

	if err != nil {
		return nil, err
	}

	c := &Config{
		Address: ":8080",
	}

	if file.Address != "" {
		c.Address = file.Address
	}

	if err := c.registerAuthorizer(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerProviders(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerPlanners(file); err != nil {
		return nil, err
	}

	if err := c.registerStore(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerOverlay(file); err != nil {
		return nil, err
	}

	return c, nil
}

// Close releases store connections.
func (c *Config) Close() error {
	var result error

	for _, close := range c.closers {
		if err := close(); err != nil && result == nil {
			result = err
		}
	}

	return result
}

type configFile struct {
	Address string `yaml:"address"`

	Authorizers []authorizerConfig `yaml:"authorizers"`

	Providers []providerConfig `yaml:"providers"`

	Planners yaml.Node `yaml:"planners"`

	Store   storeConfig   `yaml:"store"`
	Overlay overlayConfig `yaml:"overlay"`
}

func parseFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return parse(data)
}

func parse(data []byte) (*configFile, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var config configFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func createLimiter(limit *int) *rate.Limiter {
	if limit == nil {
		return nil
	}

	return rate.NewLimiter(rate.Limit(*limit), *limit)
}
