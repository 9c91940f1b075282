// Package grpc serves the document store over gRPC.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/documents"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/metrics"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/notify"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	rpc.UnimplementedDocumentStoreServer
	address   string
	documents *documents.Service
	changes   *notify.Hub
	metrics   *metrics.Metrics
	logger    logging.Logger
	jwtSecret []byte

	// shutdown is closed when serving stops so open subscriptions end and
	// GracefulStop does not wait on them forever.
	shutdown chan struct{}
	stopOnce sync.Once
}

func NewGRPCServer(a string, l logging.Logger, ds *documents.Service, hub *notify.Hub, m *metrics.Metrics, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		documents: ds,
		changes:   hub,
		metrics:   m,
		jwtSecret: []byte(secretKey),
		shutdown:  make(chan struct{}),
	}
}

// newServer creates the gRPC server with interceptors and the service
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.metrics.UnaryInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.metrics.StreamInterceptor, s.streamAccessTokenInterceptor),
	)
	rpc.RegisterDocumentStoreServer(srv, s)
	return srv
}

// Serve accepts connections on listen until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	stop := context.AfterFunc(ctx, func() {
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.stopOnce.Do(func() { close(s.shutdown) })
		srv.GracefulStop()
	})
	defer stop()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	return srv.Serve(listen)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}
