package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name of the analyzer.
const ServiceName = "ctftools.xor.v1.Analyzer"

// AnalyzerServer is the server API of the analyzer service.
type AnalyzerServer interface {
	ScoreKeyLengths(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveKeyLength(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindKeyCandidates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecoverEmbeddedKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnumerateKeys(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the analyzer service for grpc.Server.RegisterService.
// The messages are well-known structpb types so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ScoreKeyLengths", Handler: unaryHandler("ScoreKeyLengths", AnalyzerServer.ScoreKeyLengths)},
		{MethodName: "ResolveKeyLength", Handler: unaryHandler("ResolveKeyLength", AnalyzerServer.ResolveKeyLength)},
		{MethodName: "FindKeyCandidates", Handler: unaryHandler("FindKeyCandidates", AnalyzerServer.FindKeyCandidates)},
		{MethodName: "RecoverEmbeddedKey", Handler: unaryHandler("RecoverEmbeddedKey", AnalyzerServer.RecoverEmbeddedKey)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "EnumerateKeys",
			Handler:       enumerateKeysHandler,
			ServerStreams: true,
		},
	},
	Metadata: "ctftools/xor/v1/analyzer",
}

// RegisterAnalyzerServer registers srv on s.
func RegisterAnalyzerServer(s grpc.ServiceRegistrar, srv AnalyzerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func methodPath(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryMethod func(AnalyzerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyzerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPath(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyzerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func enumerateKeysHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AnalyzerServer).EnumerateKeys(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}
