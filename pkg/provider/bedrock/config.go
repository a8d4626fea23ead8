package bedrock

import (
	"net/http"
)

type Config struct {
	model  string
	region string

	client *http.Client
}

type Option func(*Config)

func WithClient(client *http.Client) Option {
	return func(c *Config) {
		c.client = client
	}
}

func WithRegion(region string) Option {
	return func(c *Config) {
		c.region = region
	}
}
