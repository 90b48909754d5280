package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the analyzer service over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodPath(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ScoreKeyLengths(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ScoreKeyLengths", in, opts...)
}

func (c *Client) ResolveKeyLength(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ResolveKeyLength", in, opts...)
}

func (c *Client) FindKeyCandidates(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "FindKeyCandidates", in, opts...)
}

func (c *Client) RecoverEmbeddedKey(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "RecoverEmbeddedKey", in, opts...)
}

// EnumerateKeys opens a key stream. The caller reads it with Recv until
// io.EOF.
func (c *Client) EnumerateKeys(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], methodPath("EnumerateKeys"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
