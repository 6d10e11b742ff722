package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name. Requests and
// responses are google.protobuf.Struct values so no generated stubs are
// needed on either side.
const ServiceName = "fileguard.v1.FileGuard"

const (
	MethodProcess            = "/" + ServiceName + "/Process"
	MethodFetchAuditLogs     = "/" + ServiceName + "/FetchAuditLogs"
	MethodArchiveOldMetadata = "/" + ServiceName + "/ArchiveOldMetadata"
	MethodCheckIntegrity     = "/" + ServiceName + "/CheckIntegrity"
)

// FileGuardServer is implemented by GRPCServer.
type FileGuardServer interface {
	Process(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchAuditLogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ArchiveOldMetadata(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckIntegrity(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(FileGuardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FileGuardServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		h := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FileGuardServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, h)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FileGuardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Process", Handler: handler(MethodProcess, FileGuardServer.Process)},
		{MethodName: "FetchAuditLogs", Handler: handler(MethodFetchAuditLogs, FileGuardServer.FetchAuditLogs)},
		{MethodName: "ArchiveOldMetadata", Handler: handler(MethodArchiveOldMetadata, FileGuardServer.ArchiveOldMetadata)},
		{MethodName: "CheckIntegrity", Handler: handler(MethodCheckIntegrity, FileGuardServer.CheckIntegrity)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fileguard/v1/fileguard",
}

// RegisterFileGuardServer registers srv on s.
func RegisterFileGuardServer(s grpc.ServiceRegistrar, srv FileGuardServer) {
	s.RegisterService(&serviceDesc, srv)
}
