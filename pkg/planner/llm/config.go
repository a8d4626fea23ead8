package llm

type Option func(*Client)

// WithAttempts sets how often the model is asked before planning fails.
func WithAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *Client) {
		c.temperature = temperature
	}
}
