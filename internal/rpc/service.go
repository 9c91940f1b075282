package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "nutrikeeper.documents.v1.DocumentStore"

const (
	MethodList      = "/" + ServiceName + "/List"
	MethodGet       = "/" + ServiceName + "/Get"
	MethodCreate    = "/" + ServiceName + "/Create"
	MethodUpdate    = "/" + ServiceName + "/Update"
	MethodDelete    = "/" + ServiceName + "/Delete"
	MethodSubscribe = "/" + ServiceName + "/Subscribe"
)

// DocumentStoreClient is the client API for the DocumentStore service.
type DocumentStoreClient interface {
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*DocumentResponse, error)
	Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*DocumentResponse, error)
	Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*DocumentResponse, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*Empty, error)
	Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Snapshot], error)
}

type documentStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentStoreClient(cc grpc.ClientConnInterface) DocumentStoreClient {
	return &documentStoreClient{cc}
}

func (c *documentStoreClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	out := new(ListResponse)
	if err := c.cc.Invoke(ctx, MethodList, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*DocumentResponse, error) {
	out := new(DocumentResponse)
	if err := c.cc.Invoke(ctx, MethodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*DocumentResponse, error) {
	out := new(DocumentResponse)
	if err := c.cc.Invoke(ctx, MethodCreate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*DocumentResponse, error) {
	out := new(DocumentResponse)
	if err := c.cc.Invoke(ctx, MethodUpdate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, MethodDelete, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Snapshot], error) {
	stream, err := c.cc.NewStream(ctx, &DocumentStoreServiceDesc.Streams[0], MethodSubscribe, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[SubscribeRequest, Snapshot]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// DocumentStoreServer is the server API for the DocumentStore service.
type DocumentStoreServer interface {
	List(context.Context, *ListRequest) (*ListResponse, error)
	Get(context.Context, *GetRequest) (*DocumentResponse, error)
	Create(context.Context, *CreateRequest) (*DocumentResponse, error)
	Update(context.Context, *UpdateRequest) (*DocumentResponse, error)
	Delete(context.Context, *DeleteRequest) (*Empty, error)
	Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[Snapshot]) error
}

// UnimplementedDocumentStoreServer can be embedded to get forward-compatible
// implementations.
type UnimplementedDocumentStoreServer struct{}

func (UnimplementedDocumentStoreServer) List(context.Context, *ListRequest) (*ListResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedDocumentStoreServer) Get(context.Context, *GetRequest) (*DocumentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedDocumentStoreServer) Create(context.Context, *CreateRequest) (*DocumentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Create not implemented")
}
func (UnimplementedDocumentStoreServer) Update(context.Context, *UpdateRequest) (*DocumentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Update not implemented")
}
func (UnimplementedDocumentStoreServer) Delete(context.Context, *DeleteRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedDocumentStoreServer) Subscribe(*SubscribeRequest, grpc.ServerStreamingServer[Snapshot]) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

func RegisterDocumentStoreServer(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&DocumentStoreServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(DocumentStoreServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	m := new(SubscribeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DocumentStoreServer).Subscribe(m, &grpc.GenericServerStream[SubscribeRequest, Snapshot]{ServerStream: stream})
}

var DocumentStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: unaryHandler(MethodList, DocumentStoreServer.List)},
		{MethodName: "Get", Handler: unaryHandler(MethodGet, DocumentStoreServer.Get)},
		{MethodName: "Create", Handler: unaryHandler(MethodCreate, DocumentStoreServer.Create)},
		{MethodName: "Update", Handler: unaryHandler(MethodUpdate, DocumentStoreServer.Update)},
		{MethodName: "Delete", Handler: unaryHandler(MethodDelete, DocumentStoreServer.Delete)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
}
