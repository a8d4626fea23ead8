package provider

type Provider = any

type Schema struct {
	Name        string
	Description string

	Strict *bool

	Schema map[string]any
}

type Usage struct {
	InputTokens  int
	OutputTokens int

	CacheReadInputTokens     int
	CacheCreationInputTokens int
}
