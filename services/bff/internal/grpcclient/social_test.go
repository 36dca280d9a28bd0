package grpcclient

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealth(t *testing.T) (*health.Server, *SocialClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewSocialClient("passthrough:///bufnet", "social",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return hs, c
}

func TestSocialClient_Check(t *testing.T) {
	hs, c := startHealth(t)

	hs.SetServingStatus("social", healthpb.HealthCheckResponse_SERVING)
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("expected serving, got %v", err)
	}

	hs.SetServingStatus("social", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error when not serving")
	}
}

func TestSocialClient_UnknownService(t *testing.T) {
	_, c := startHealth(t)
	c.Service = "nope"
	if err := c.Check(context.Background()); err == nil {
		t.Fatal("expected NotFound error for unregistered service")
	}
}
