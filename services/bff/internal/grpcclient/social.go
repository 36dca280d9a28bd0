package grpcclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SocialClient watches the social service through the standard gRPC health service.
type SocialClient struct {
	Conn    *grpc.ClientConn
	Health  healthpb.HealthClient
	Service string
	Timeout time.Duration
}

func NewSocialClient(addr, service string, opts ...grpc.DialOption) (*SocialClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &SocialClient{
		Conn:    conn,
		Health:  healthpb.NewHealthClient(conn),
		Service: service,
		Timeout: 2 * time.Second,
	}, nil
}

// Check returns nil when social reports SERVING for its service name.
func (c *SocialClient) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: c.Service})
	if err != nil {
		return fmt.Errorf("social health: %w", err)
	}
	if s := resp.GetStatus(); s != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("social health: %s", s)
	}
	return nil
}

func (c *SocialClient) Close() error { return c.Conn.Close() }
