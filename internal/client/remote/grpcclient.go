package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/auth"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const defaultTokenTTL = 5 * time.Minute

// GRPCClient talks to the document store over gRPC with the JSON codec.
// Every call carries a freshly minted access token signed with the shared
// secret of the connection descriptor.
type GRPCClient struct {
	endpointURL string
	secret      []byte
	clientID    string
	tokenTTL    time.Duration
	logger      logging.Logger

	conn   *grpc.ClientConn
	client rpc.DocumentStoreClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) authorize(ctx context.Context) (context.Context, error) {
	token, err := auth.GenerateToken(s.clientID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	return withAccessToken(ctx, token), nil
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) accessTokenStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// NewGRPCClient prepares a client for endpointURL. No connection is made
// until the first call. Extra dial options are appended to the defaults.
func NewGRPCClient(endpointURL, secret, clientID string, logger logging.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	c := &GRPCClient{
		endpointURL: endpointURL,
		secret:      []byte(secret),
		clientID:    clientID,
		tokenTTL:    defaultTokenTTL,
		logger:      logger.With("module", "remote"),
	}
	if err := c.initGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient(extra ...grpc.DialOption) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.accessTokenStreamInterceptor),
	}, extra...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewDocumentStoreClient(conn)
	return nil
}

func (s *GRPCClient) List(ctx context.Context, collection string) ([]rpc.Document, error) {
	resp, err := s.client.List(ctx, &rpc.ListRequest{Collection: collection})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Documents, nil
}

func (s *GRPCClient) Get(ctx context.Context, collection, id string) (*rpc.Document, error) {
	resp, err := s.client.Get(ctx, &rpc.GetRequest{Collection: collection, ID: id})
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Document, nil
}

func (s *GRPCClient) Create(ctx context.Context, collection string, data map[string]any) (*rpc.Document, error) {
	resp, err := s.client.Create(ctx, &rpc.CreateRequest{Collection: collection, Data: data})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Document, nil
}

func (s *GRPCClient) Update(ctx context.Context, collection, id string, patch map[string]any) (*rpc.Document, error) {
	resp, err := s.client.Update(ctx, &rpc.UpdateRequest{Collection: collection, ID: id, Patch: patch})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Document, nil
}

func (s *GRPCClient) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Delete(ctx, &rpc.DeleteRequest{Collection: collection, ID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (func(), error) {
	// the stream outlives ctx; ctx only bounds the attach
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	stream, err := s.client.Subscribe(sctx, &rpc.SubscribeRequest{Collection: collection})
	if err != nil {
		stop()
		cancel()
		return nil, s.mapError(err)
	}

	first, err := stream.Recv()
	if !stop() {
		cancel()
		return nil, s.mapError(ctx.Err())
	}
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}

	fn(first.Documents, nil)

	go func() {
		for {
			snap, err := stream.Recv()
			if err != nil {
				if sctx.Err() == nil {
					s.logger.Warn(sctx, "subscription dropped", "collection", collection, "error", err)
					fn(nil, s.mapError(err))
				}
				return
			}
			fn(snap.Documents, nil)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return ErrUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return ErrUnavailable
	case codes.NotFound:
		return common.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
