package feedv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "votefeed.v1.Feed"

// Full method names, usable in interceptors.
const (
	FetchPageMethod  = "/" + ServiceName + "/FetchPage"
	CastVoteMethod   = "/" + ServiceName + "/CastVote"
	CreateItemMethod = "/" + ServiceName + "/CreateItem"
	GetItemMethod    = "/" + ServiceName + "/GetItem"
	UpdateItemMethod = "/" + ServiceName + "/UpdateItem"
	DeleteItemMethod = "/" + ServiceName + "/DeleteItem"
)

// FeedServer is the server API for the Feed service.
type FeedServer interface {
	FetchPage(context.Context, *FetchPageRequest) (*FetchPageResponse, error)
	CastVote(context.Context, *CastVoteRequest) (*CastVoteResponse, error)
	CreateItem(context.Context, *CreateItemRequest) (*ItemResponse, error)
	GetItem(context.Context, *GetItemRequest) (*ItemResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error)
	DeleteItem(context.Context, *DeleteItemRequest) (*DeleteItemResponse, error)
}

// UnimplementedFeedServer answers every method with codes.Unimplemented.
// Embed it to stay forward compatible.
type UnimplementedFeedServer struct{}

func (UnimplementedFeedServer) FetchPage(context.Context, *FetchPageRequest) (*FetchPageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FetchPage not implemented")
}
func (UnimplementedFeedServer) CastVote(context.Context, *CastVoteRequest) (*CastVoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CastVote not implemented")
}
func (UnimplementedFeedServer) CreateItem(context.Context, *CreateItemRequest) (*ItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateItem not implemented")
}
func (UnimplementedFeedServer) GetItem(context.Context, *GetItemRequest) (*ItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetItem not implemented")
}
func (UnimplementedFeedServer) UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateItem not implemented")
}
func (UnimplementedFeedServer) DeleteItem(context.Context, *DeleteItemRequest) (*DeleteItemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteItem not implemented")
}

// unary adapts a typed FeedServer method to a grpc.MethodHandler.
func unary[Req, Resp any](full string, call func(FeedServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FeedServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FeedServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the Feed service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeedServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FetchPage", Handler: unary(FetchPageMethod, FeedServer.FetchPage)},
		{MethodName: "CastVote", Handler: unary(CastVoteMethod, FeedServer.CastVote)},
		{MethodName: "CreateItem", Handler: unary(CreateItemMethod, FeedServer.CreateItem)},
		{MethodName: "GetItem", Handler: unary(GetItemMethod, FeedServer.GetItem)},
		{MethodName: "UpdateItem", Handler: unary(UpdateItemMethod, FeedServer.UpdateItem)},
		{MethodName: "DeleteItem", Handler: unary(DeleteItemMethod, FeedServer.DeleteItem)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "votefeed/v1/feed",
}

// RegisterFeedServer registers srv on s.
func RegisterFeedServer(s grpc.ServiceRegistrar, srv FeedServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FeedClient is the client API for the Feed service.
type FeedClient interface {
	FetchPage(ctx context.Context, in *FetchPageRequest, opts ...grpc.CallOption) (*FetchPageResponse, error)
	CastVote(ctx context.Context, in *CastVoteRequest, opts ...grpc.CallOption) (*CastVoteResponse, error)
	CreateItem(ctx context.Context, in *CreateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error)
	GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*ItemResponse, error)
	UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error)
	DeleteItem(ctx context.Context, in *DeleteItemRequest, opts ...grpc.CallOption) (*DeleteItemResponse, error)
}

type feedClient struct {
	cc grpc.ClientConnInterface
}

// NewFeedClient returns a FeedClient that encodes every call with the JSON codec.
func NewFeedClient(cc grpc.ClientConnInterface) FeedClient {
	return &feedClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *feedClient) FetchPage(ctx context.Context, in *FetchPageRequest, opts ...grpc.CallOption) (*FetchPageResponse, error) {
	return invoke[FetchPageResponse](ctx, c.cc, FetchPageMethod, in, opts)
}

func (c *feedClient) CastVote(ctx context.Context, in *CastVoteRequest, opts ...grpc.CallOption) (*CastVoteResponse, error) {
	return invoke[CastVoteResponse](ctx, c.cc, CastVoteMethod, in, opts)
}

func (c *feedClient) CreateItem(ctx context.Context, in *CreateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c.cc, CreateItemMethod, in, opts)
}

func (c *feedClient) GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c.cc, GetItemMethod, in, opts)
}

func (c *feedClient) UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c.cc, UpdateItemMethod, in, opts)
}

func (c *feedClient) DeleteItem(ctx context.Context, in *DeleteItemRequest, opts ...grpc.CallOption) (*DeleteItemResponse, error) {
	return invoke[DeleteItemResponse](ctx, c.cc, DeleteItemMethod, in, opts)
}
