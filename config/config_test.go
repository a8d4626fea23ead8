package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrianliechti/forge/pkg/limiter"
	"github.com/adrianliechti/forge/pkg/otel"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := write(t, `
address: ":9090"

authorizers:
  - type: static
    token: secret

providers:
  - type: openai
    token: ${OPENAI_API_KEY}
    limit: 5
    models:
      gpt-5-mini:
        id: gpt-5-mini
      gpt-5:

planners:
  default:
    type: llm
    model: gpt-5-mini
    attempts: 3
  remote:
    type: custom
    url: grpc://localhost:50051
  failover:
    type: router
    planners: [remote, default]
    failure_threshold: 2
    recovery_timeout: 1m

overlay:
  resolve_threshold: 0.3
  mask_color: "#fafafa"
`)

	cfg, err := Parse(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { cfg.Close() })

	require.Equal(t, ":9090", cfg.Address)
	require.Len(t, cfg.Authorizers, 1)

	completer, err := cfg.Completer("")
	require.NoError(t, err)
	require.Implements(t, (*limiter.Completer)(nil), completer)

	_, err = cfg.Completer("gpt-5-mini")
	require.NoError(t, err)

	_, err = cfg.Completer("missing")
	require.Error(t, err)

	p, err := cfg.Planner("")
	require.NoError(t, err)
	require.Implements(t, (*otel.Planner)(nil), p)

	_, err = cfg.Planner("remote")
	require.NoError(t, err)

	_, err = cfg.Planner("failover")
	require.NoError(t, err)

	require.NotNil(t, cfg.Store)
	require.NotNil(t, cfg.Overlay)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(context.Background(), write(t, "store:\n  type: memory\n"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Address)
	require.NotNil(t, cfg.Overlay)

	_, err = cfg.Planner("")
	require.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	for name, content := range map[string]string{
		"unknown field":   "unknown: true\n",
		"store type":      "store:\n  type: sqlite\n",
		"authorizer type": "authorizers:\n  - type: basic\n",
		"planner model":   "planners:\n  default:\n    type: llm\n    model: missing\n",
		"planner url":     "planners:\n  remote:\n    type: custom\n    url: http://localhost\n",
		"router planners": "planners:\n  failover:\n    type: router\n    planners: [missing]\n",
		"router empty":    "planners:\n  failover:\n    type: router\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(context.Background(), write(t, content))
			require.Error(t, err)
		})
	}
}
