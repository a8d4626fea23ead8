package redis_test

import (
	"context"
	"testing"

	"github.com/adrianliechti/forge/pkg/store/redis"
	"github.com/adrianliechti/forge/pkg/store/storetest"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()

	server, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,

		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:8-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
	})

	require.NoError(t, err)
	t.Cleanup(func() { testcontainers.TerminateContainer(server) })

	endpoint, err := server.Endpoint(ctx, "")
	require.NoError(t, err)

	s, err := redis.New("redis://" + endpoint)
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	storetest.Run(t, s)
}
