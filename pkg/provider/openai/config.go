package openai

import (
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3/option"
)

type Config struct {
	url string

	token string
	model string

	client *http.Client
}

type Option func(*Config)

func WithClient(client *http.Client) Option {
	return func(c *Config) {
		c.client = client
	}
}

func WithToken(token string) Option {
	return func(c *Config) {
		c.token = token
	}
}

func (c *Config) Options() []option.RequestOption {
	url := c.url

	if url == "" {
		url = "https://api.openai.com/v1/"
	}

	client := c.client

	if client == nil {
		client = http.DefaultClient
	}

	url = strings.TrimRight(url, "/") + "/"

	options := []option.RequestOption{
		option.WithBaseURL(url),
		option.WithHTTPClient(client),
	}

	// Azure OpenAI deployments authenticate with an api-key header
	if strings.Contains(url, "openai.azure.com") || strings.Contains(url, "cognitiveservices.azure.com") {
		options = append(options, option.WithQueryAdd("api-version", "preview"))

		if c.token != "" {
			options = append(options, option.WithHeader("Api-Key", c.token))
		}

		return options
	}

	if c.token != "" {
		options = append(options, option.WithAPIKey(c.token))
	}

	return options
}
