package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names, as clients dial them.
const (
	MethodStats    = "/" + ServiceName + "/Stats"
	MethodSearch   = "/" + ServiceName + "/Search"
	MethodList     = "/" + ServiceName + "/List"
	MethodFailures = "/" + ServiceName + "/Failures"
	MethodExport   = "/" + ServiceName + "/Export"
)

// QueryServiceDesc describes QueryServer to grpc.Server.RegisterService.
var QueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Stats", Handler: statsHandler},
		{MethodName: "Search", Handler: structHandler(MethodSearch, QueryServer.Search)},
		{MethodName: "List", Handler: structHandler(MethodList, QueryServer.List)},
		{MethodName: "Failures", Handler: structHandler(MethodFailures, QueryServer.Failures)},
		{MethodName: "Export", Handler: structHandler(MethodExport, QueryServer.Export)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pdfextract/v1/query.proto",
}

// RegisterQueryServer attaches srv to s.
func RegisterQueryServer(s grpc.ServiceRegistrar, srv QueryServer) {
	s.RegisterService(&QueryServiceDesc, srv)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodStats}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(QueryServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// structHandler builds the unary handler for a method taking a Struct request.
func structHandler[Resp any](fullMethod string, call func(QueryServer, context.Context, *structpb.Struct) (Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(QueryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(QueryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
