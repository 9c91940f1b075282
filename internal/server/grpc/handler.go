package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
	"github.com/dmitrijs2005/nutrikeeper/internal/server/documents"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) List(ctx context.Context, req *rpc.ListRequest) (*rpc.ListResponse, error) {
	docs, err := s.documents.List(ctx, req.Collection)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.ListResponse{Documents: toWire(docs)}, nil
}

func (s *GRPCServer) Get(ctx context.Context, req *rpc.GetRequest) (*rpc.DocumentResponse, error) {
	doc, err := s.documents.Get(ctx, req.Collection, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.DocumentResponse{Document: toWireDocument(doc)}, nil
}

func (s *GRPCServer) Create(ctx context.Context, req *rpc.CreateRequest) (*rpc.DocumentResponse, error) {
	doc, err := s.documents.Create(ctx, req.Collection, req.Data)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Debug(ctx, "Created document", "collection", req.Collection, "id", doc.ID, "client", ctx.Value(ClientIDKey))
	return &rpc.DocumentResponse{Document: toWireDocument(doc)}, nil
}

func (s *GRPCServer) Update(ctx context.Context, req *rpc.UpdateRequest) (*rpc.DocumentResponse, error) {
	doc, err := s.documents.Update(ctx, req.Collection, req.ID, req.Patch)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.DocumentResponse{Document: toWireDocument(doc)}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *rpc.DeleteRequest) (*rpc.Empty, error) {
	if err := s.documents.Delete(ctx, req.Collection, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.Empty{}, nil
}

// Subscribe sends the full collection right away and again after every
// change until the client goes away.
func (s *GRPCServer) Subscribe(req *rpc.SubscribeRequest, stream grpc.ServerStreamingServer[rpc.Snapshot]) error {
	ctx := stream.Context()

	// register before the first read so no change slips in between
	changed, cancel := s.changes.Subscribe(req.Collection)
	defer cancel()

	s.metrics.SubscriptionOpened()
	defer s.metrics.SubscriptionClosed()

	s.logger.Info(ctx, "Subscription opened", "collection", req.Collection, "client", ctx.Value(ClientIDKey))

	for {
		docs, err := s.documents.List(ctx, req.Collection)
		if err != nil {
			return s.toStatus(ctx, err)
		}
		if err := stream.Send(&rpc.Snapshot{Collection: req.Collection, Documents: toWire(docs)}); err != nil {
			return err
		}
		s.metrics.SnapshotSent(req.Collection)

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Subscription closed", "collection", req.Collection)
			return nil
		case <-s.shutdown:
			return status.Error(codes.Unavailable, "server shutting down")
		case <-changed:
		}
	}
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, "internal error")
}

func toWireDocument(d *documents.Document) rpc.Document {
	return rpc.Document{
		ID:         d.ID,
		Collection: d.Collection,
		Data:       d.Data,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func toWire(docs []*documents.Document) []rpc.Document {
	out := make([]rpc.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, toWireDocument(d))
	}
	return out
}
