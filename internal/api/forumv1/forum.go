// Package forumv1 — контракт gRPC-сервиса forum.v1.Forum.
//
// Сообщения — google.protobuf.Struct:
//
//	Call:      {method: string, args: list}   -> {result: value}
//	Subscribe: {name: string, args: list}     -> stream {type, collection, id, doc, name, value, error}
//
// Аргументы и документы передаются в JSON-представлении, поэтому отдельная
// .proto-схема на каждую публикацию не нужна.
package forumv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "forum.v1.Forum"

	FullMethodCall      = "/forum.v1.Forum/Call"
	FullMethodSubscribe = "/forum.v1.Forum/Subscribe"
)

// ForumServer — серверная сторона forum.v1.Forum.
type ForumServer interface {
	Call(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, Forum_SubscribeServer) error
}

// UnimplementedForumServer отвечает codes.Unimplemented на все методы.
type UnimplementedForumServer struct{}

func (UnimplementedForumServer) Call(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Call not implemented")
}

func (UnimplementedForumServer) Subscribe(*structpb.Struct, Forum_SubscribeServer) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

// Forum_SubscribeServer — исходящий поток событий подписки.
type Forum_SubscribeServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type forumSubscribeServer struct {
	grpc.ServerStream
}

func (x *forumSubscribeServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterForumServer регистрирует реализацию на gRPC-сервере.
func RegisterForumServer(s grpc.ServiceRegistrar, srv ForumServer) {
	s.RegisterService(&Forum_ServiceDesc, srv)
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ForumServer).Call(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodCall}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForumServer).Call(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(ForumServer).Subscribe(in, &forumSubscribeServer{stream})
}

// Forum_ServiceDesc — описание сервиса для grpc.Server.
var Forum_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ForumServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "forum/v1/forum.proto",
}

// ForumClient — клиентская сторона forum.v1.Forum.
type ForumClient interface {
	Call(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (Forum_SubscribeClient, error)
}

// Forum_SubscribeClient — входящий поток событий подписки.
type Forum_SubscribeClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type forumClient struct {
	cc grpc.ClientConnInterface
}

// NewForumClient создаёт клиента поверх соединения.
func NewForumClient(cc grpc.ClientConnInterface) ForumClient {
	return &forumClient{cc: cc}
}

func (c *forumClient) Call(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodCall, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *forumClient) Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (Forum_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &Forum_ServiceDesc.Streams[0], FullMethodSubscribe, opts...)
	if err != nil {
		return nil, err
	}

	x := &forumSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

type forumSubscribeClient struct {
	grpc.ClientStream
}

func (x *forumSubscribeClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}

	return m, nil
}
