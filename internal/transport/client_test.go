package transport

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type fakeServer struct {
	store map[string][]byte
}

func newFakeServer() *fakeServer {
	return &fakeServer{store: make(map[string][]byte)}
}

func (f *fakeServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{}, nil
}

func (f *fakeServer) FindSuccessor(ctx context.Context, req *IDRequest) (*AddrResponse, error) {
	return &AddrResponse{Addr: "self"}, nil
}

func (f *fakeServer) CurrentPredecessor(ctx context.Context, req *PingRequest) (*PredecessorResponse, error) {
	return &PredecessorResponse{Present: false}, nil
}

func (f *fakeServer) Notify(ctx context.Context, req *NotifyRequest) (*NotifyResponse, error) {
	return &NotifyResponse{}, nil
}

func (f *fakeServer) ClosestPrecedingNode(ctx context.Context, req *IDRequest) (*AddrResponse, error) {
	return &AddrResponse{Addr: "self"}, nil
}

func (f *fakeServer) HasLocalKey(ctx context.Context, req *KeyRequest) (*HasKeyResponse, error) {
	_, ok := f.store[req.Key]
	return &HasKeyResponse{Present: ok}, nil
}

func (f *fakeServer) GetLocal(ctx context.Context, req *GetRequest) (*ValueResponse, error) {
	if v, ok := f.store[req.Key]; ok {
		return &ValueResponse{Value: v}, nil
	}
	return &ValueResponse{Value: req.Default}, nil
}

func (f *fakeServer) SetLocal(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	f.store[req.Key] = req.Value
	return &SetResponse{}, nil
}

func (f *fakeServer) RemoveLocal(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error) {
	delete(f.store, req.Key)
	return &RemoveResponse{}, nil
}

func (f *fakeServer) SetLocalBulk(ctx context.Context, req *BulkSetRequest) (*BulkSetResponse, error) {
	for k, v := range req.Items {
		f.store[k] = v
	}
	return &BulkSetResponse{}, nil
}

func (f *fakeServer) Get(ctx context.Context, req *GetRequest) (*ValueResponse, error) {
	return f.GetLocal(ctx, req)
}

func (f *fakeServer) Set(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	return f.SetLocal(ctx, req)
}

func (f *fakeServer) Remove(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error) {
	return f.RemoveLocal(ctx, req)
}

func (f *fakeServer) DumpState(ctx context.Context, req *DumpStateRequest) (*DumpStateResponse, error) {
	return &DumpStateResponse{Self: "self", Successor: "self"}, nil
}

func (f *fakeServer) DumpDB(ctx context.Context, req *DumpDBRequest) (*DumpDBResponse, error) {
	items := make(map[string][]byte, len(f.store))
	for k, v := range f.store {
		items[k] = v
	}
	return &DumpDBResponse{Items: items}, nil
}

func dialBufconn(t *testing.T, srv *fakeServer) (ChordClient, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	gs := grpc.NewServer(grpc.ForceServerCodec(Codec))
	RegisterChordServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec)),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}

	client := &remoteClient{cc: cc, addr: "bufnet"}
	cleanup := func() {
		_ = cc.Close()
		gs.Stop()
	}
	return client, cleanup
}

func TestPingRoundTrip(t *testing.T) {
	client, cleanup := dialBufconn(t, newFakeServer())
	defer cleanup()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestSetGetLocalRoundTrip(t *testing.T) {
	client, cleanup := dialBufconn(t, newFakeServer())
	defer cleanup()
	ctx := context.Background()

	if err := client.SetLocal(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	got, err := client.GetLocal(ctx, "k", nil)
	if err != nil {
		t.Fatalf("GetLocal: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("GetLocal = %q, want v", got)
	}
}

func TestSetLocalBulkAndDumpDB(t *testing.T) {
	client, cleanup := dialBufconn(t, newFakeServer())
	defer cleanup()
	ctx := context.Background()

	if err := client.SetLocalBulk(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("SetLocalBulk: %v", err)
	}
	dump, err := client.DumpDB(ctx)
	if err != nil {
		t.Fatalf("DumpDB: %v", err)
	}
	if len(dump.Items) != 2 {
		t.Fatalf("DumpDB returned %d items, want 2", len(dump.Items))
	}
}

func TestRemoveLocal(t *testing.T) {
	client, cleanup := dialBufconn(t, newFakeServer())
	defer cleanup()
	ctx := context.Background()

	if err := client.SetLocal(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	if err := client.RemoveLocal(ctx, "k"); err != nil {
		t.Fatalf("RemoveLocal: %v", err)
	}
	present, err := client.HasLocalKey(ctx, "k")
	if err != nil {
		t.Fatalf("HasLocalKey: %v", err)
	}
	if present {
		t.Fatal("HasLocalKey true after RemoveLocal")
	}
}
