package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/documents"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/metrics"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/notify"
)

// newTestServer builds a server over an in-memory repository wired to its
// own change hub.
func newTestServer(t *testing.T, secret string) *GRPCServer {
	t.Helper()
	hub := notify.NewHub()
	svc := documents.NewService(documents.NewMemoryRepository(), hub, logging.NopLogger{})
	return NewGRPCServer("127.0.0.1:0", logging.NopLogger{}, svc, hub, metrics.New(), secret)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub()
	svc := documents.NewService(documents.NewMemoryRepository(), hub, logging.NopLogger{})
	srv := NewGRPCServer("127.0.0.1:99999", logging.NopLogger{}, svc, hub, metrics.New(), "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
