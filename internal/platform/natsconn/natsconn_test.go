package natsconn

import (
	"os"
	"testing"
	"time"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestDefaults(t *testing.T) {
	unsetenv(t, "NATS_URL", "NATS_MAX_RECONNECTS", "NATS_RECONNECT_WAIT")
	o, err := Options{}.withDefaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if o.URL != "nats://nats:4222" || o.MaxReconnects != 5 || o.ReconnectWait != 2*time.Second {
		t.Fatalf("unexpected defaults %+v", o)
	}
}

func TestDefaults_FromEnv(t *testing.T) {
	t.Setenv("NATS_MAX_RECONNECTS", "7")
	t.Setenv("NATS_RECONNECT_WAIT", "3s")
	o, err := Options{URL: "nats://explicit:4222"}.withDefaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if o.URL != "nats://explicit:4222" || o.MaxReconnects != 7 || o.ReconnectWait != 3*time.Second {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestDefaults_BadEnv(t *testing.T) {
	t.Setenv("NATS_RECONNECT_WAIT", "soon")
	if _, err := (Options{}).withDefaults(); err == nil {
		t.Fatal("expected error for malformed NATS_RECONNECT_WAIT")
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		MaxReconnects: -1,
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to invalid NATS URL")
	}
}
