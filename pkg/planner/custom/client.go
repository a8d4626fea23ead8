package custom

import (
	"context"
	"errors"
	"strings"

	"github.com/adrianliechti/forge/pkg/planner"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var _ planner.Provider = (*Client)(nil)

// Client delegates planning to an external service reached over gRPC.
type Client struct {
	url  string
	conn grpc.ClientConnInterface
}

type Option func(*Client)

func New(url string, options ...Option) (*Client, error) {
	if url == "" || !strings.HasPrefix(url, "grpc://") {
		return nil, errors.New("invalid url")
	}

	c := &Client{
		url: url,
	}

	for _, option := range options {
		option(c)
	}

	conn, err := grpc.NewClient(strings.TrimPrefix(c.url, "grpc://"),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)

	if err != nil {
		return nil, err
	}

	c.conn = conn

	return c, nil
}

func (c *Client) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	plan := new(planner.Plan)

	if err := c.conn.Invoke(ctx, planMethod, req, plan, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, fromStatus(err)
	}

	// a remote planner is held to the same rules as a local one
	if err := planner.Validate(req, plan); err != nil {
		return nil, errors.Join(planner.ErrPlanningFailed, err)
	}

	return plan, nil
}
