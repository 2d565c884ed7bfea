package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// JudgeMethod is the full gRPC method name served by the judgment service.
const JudgeMethod = "/oracle.v1.Oracle/Judge"

// #region invoker

// invoker is the slice of grpc.ClientConnInterface the transport needs.
type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// #endregion invoker

// #region grpc-struct

// GRPCTransport sends requests to a judgment service over gRPC. The request
// travels as a google.protobuf.Struct and the reply as a
// google.protobuf.StringValue, so no generated stubs are needed.
type GRPCTransport struct {
	conn *grpc.ClientConn
	inv  invoker
}

// #endregion grpc-struct

// #region grpc-constructor

// NewGRPCTransport connects to the judgment service at addr.
func NewGRPCTransport(addr string) (*GRPCTransport, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCTransport{conn: conn, inv: conn}, nil
}

// NewGRPCTransportWithInvoker creates a transport over an injected invoker.
// Used for testing without a real gRPC connection.
func NewGRPCTransportWithInvoker(inv invoker) *GRPCTransport {
	return &GRPCTransport{inv: inv}
}

// Close shuts down the gRPC connection.
func (t *GRPCTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// #endregion grpc-constructor

// #region grpc-complete

// Complete performs one Judge RPC.
func (t *GRPCTransport) Complete(ctx context.Context, req Request) (string, error) {
	payload, err := requestStruct(req)
	if err != nil {
		return "", err
	}

	reply := &wrapperspb.StringValue{}
	if err := t.inv.Invoke(ctx, JudgeMethod, payload, reply); err != nil {
		return "", fmt.Errorf("judge rpc: %w", err)
	}
	return reply.GetValue(), nil
}

// requestStruct converts a Request into a protobuf Struct. structpb.NewStruct
// rejects typed slices such as []string, so the request goes through JSON.
func requestStruct(req Request) (*structpb.Struct, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("encode request struct: %w", err)
	}
	return s, nil
}

// #endregion grpc-complete
