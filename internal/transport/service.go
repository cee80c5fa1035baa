package transport

import (
	"context"

	"google.golang.org/grpc"
)

// ChordServer is implemented by a local node to answer the RPCs a remote
// peer may issue against it (§4.5). internal/ring.Node implements this.
type ChordServer interface {
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
	FindSuccessor(ctx context.Context, req *IDRequest) (*AddrResponse, error)
	CurrentPredecessor(ctx context.Context, req *PingRequest) (*PredecessorResponse, error)
	Notify(ctx context.Context, req *NotifyRequest) (*NotifyResponse, error)
	ClosestPrecedingNode(ctx context.Context, req *IDRequest) (*AddrResponse, error)
	HasLocalKey(ctx context.Context, req *KeyRequest) (*HasKeyResponse, error)
	GetLocal(ctx context.Context, req *GetRequest) (*ValueResponse, error)
	SetLocal(ctx context.Context, req *SetRequest) (*SetResponse, error)
	RemoveLocal(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error)
	SetLocalBulk(ctx context.Context, req *BulkSetRequest) (*BulkSetResponse, error)
	Get(ctx context.Context, req *GetRequest) (*ValueResponse, error)
	Set(ctx context.Context, req *SetRequest) (*SetResponse, error)
	Remove(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error)
	DumpState(ctx context.Context, req *DumpStateRequest) (*DumpStateResponse, error)
	DumpDB(ctx context.Context, req *DumpDBRequest) (*DumpDBResponse, error)
}

// ServiceName is the gRPC service name advertised in ServiceDesc and used
// to build the fully qualified method strings on the client side.
const ServiceName = "chordring.Chord"

func handler[Req, Resp any](call func(ChordServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(ChordServer)
		if interceptor == nil {
			return call(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName}
		handlerFn := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handlerFn)
	}
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// generated service descriptor: one MethodDesc per RPC in §4.5, each
// wrapping a type-safe ChordServer method.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChordServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *PingRequest) (*PingResponse, error) {
			return s.Ping(ctx, r)
		}))},
		{MethodName: "FindSuccessor", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *IDRequest) (*AddrResponse, error) {
			return s.FindSuccessor(ctx, r)
		}))},
		{MethodName: "CurrentPredecessor", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *PingRequest) (*PredecessorResponse, error) {
			return s.CurrentPredecessor(ctx, r)
		}))},
		{MethodName: "Notify", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *NotifyRequest) (*NotifyResponse, error) {
			return s.Notify(ctx, r)
		}))},
		{MethodName: "ClosestPrecedingNode", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *IDRequest) (*AddrResponse, error) {
			return s.ClosestPrecedingNode(ctx, r)
		}))},
		{MethodName: "HasLocalKey", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *KeyRequest) (*HasKeyResponse, error) {
			return s.HasLocalKey(ctx, r)
		}))},
		{MethodName: "GetLocal", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *GetRequest) (*ValueResponse, error) {
			return s.GetLocal(ctx, r)
		}))},
		{MethodName: "SetLocal", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *SetRequest) (*SetResponse, error) {
			return s.SetLocal(ctx, r)
		}))},
		{MethodName: "RemoveLocal", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *RemoveRequest) (*RemoveResponse, error) {
			return s.RemoveLocal(ctx, r)
		}))},
		{MethodName: "SetLocalBulk", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *BulkSetRequest) (*BulkSetResponse, error) {
			return s.SetLocalBulk(ctx, r)
		}))},
		{MethodName: "Get", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *GetRequest) (*ValueResponse, error) {
			return s.Get(ctx, r)
		}))},
		{MethodName: "Set", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *SetRequest) (*SetResponse, error) {
			return s.Set(ctx, r)
		}))},
		{MethodName: "Remove", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *RemoveRequest) (*RemoveResponse, error) {
			return s.Remove(ctx, r)
		}))},
		{MethodName: "DumpState", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *DumpStateRequest) (*DumpStateResponse, error) {
			return s.DumpState(ctx, r)
		}))},
		{MethodName: "DumpDB", Handler: unaryHandler(handler(func(s ChordServer, ctx context.Context, r *DumpDBRequest) (*DumpDBResponse, error) {
			return s.DumpDB(ctx, r)
		}))},
	},
	Metadata: "chordring/transport.proto",
}

// unaryHandler adapts our generic handler func to grpc.methodHandler's
// concrete signature (Go generics can't appear directly in a struct field
// of a fixed function type).
func unaryHandler(h func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return h
}

// RegisterChordServer registers srv as the handler for every RPC on s.
func RegisterChordServer(s grpc.ServiceRegistrar, srv ChordServer) {
	s.RegisterService(&ServiceDesc, srv)
}
