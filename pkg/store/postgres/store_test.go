package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/adrianliechti/forge/pkg/store/postgres"
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
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},

			Env: map[string]string{
				"POSTGRES_USER":     "forge",
				"POSTGRES_PASSWORD": "forge",
				"POSTGRES_DB":       "forge",
			},

			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(time.Minute),
		},
	})

	require.NoError(t, err)
	t.Cleanup(func() { testcontainers.TerminateContainer(server) })

	endpoint, err := server.Endpoint(ctx, "")
	require.NoError(t, err)

	s, err := postgres.New(ctx, fmt.Sprintf("postgres://forge:forge@%s/forge?sslmode=disable", endpoint))
	require.NoError(t, err)

	t.Cleanup(s.Close)

	storetest.Run(t, s)
}
