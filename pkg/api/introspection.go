package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// introspectionServer is the interface *Server implements. Declared
// separately from Server so the hand-written ServiceDesc below doesn't
// need a generated interface type.
type introspectionServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetComponentStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func _Introspection_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(introspectionServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/flowd.introspection.v1.Introspection/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(introspectionServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Introspection_GetComponentStats_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(introspectionServer).GetComponentStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/flowd.introspection.v1.Introspection/GetComponentStats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(introspectionServer).GetComponentStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// introspectionServiceDesc is a hand-written grpc.ServiceDesc standing
// in for what protoc-gen-go-grpc would normally generate. Every
// request/response type here is a protobuf well-known type
// (emptypb.Empty, structpb.Struct), so no .proto compilation step is
// needed — both already satisfy proto.Message.
var introspectionServiceDesc = grpc.ServiceDesc{
	ServiceName: "flowd.introspection.v1.Introspection",
	HandlerType: (*introspectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _Introspection_GetStatus_Handler},
		{MethodName: "GetComponentStats", Handler: _Introspection_GetComponentStats_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/api/introspection.go",
}
