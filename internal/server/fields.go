package server

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Requests and responses are structpb.Struct messages. Byte strings travel
// as standard base64, integers as JSON numbers.

func field(req *structpb.Struct, name string) (*structpb.Value, bool) {
	if req == nil {
		return nil, false
	}
	v, ok := req.GetFields()[name]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := field(req, name)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return strings.TrimSpace(s.StringValue), nil
}

func intField(req *structpb.Struct, name string, def int) (int, error) {
	v, ok := field(req, name)
	if !ok {
		return def, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int(f), nil
}

func bytesField(req *structpb.Struct, name string) ([]byte, error) {
	s, err := stringField(req, name)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be base64: %v", name, err)
	}
	return data, nil
}

func requireCiphertext(req *structpb.Struct) ([]byte, error) {
	ct, err := bytesField(req, "ciphertext")
	if err != nil {
		return nil, err
	}
	if len(ct) == 0 {
		return nil, status.Error(codes.InvalidArgument, "ciphertext is required")
	}
	return ct, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
