package ring

import (
	"context"
	"time"

	"chordring/internal/transport"
)

// FindSuccessor resolves id to the node responsible for it (§4.4): either
// this node's own successor, when id falls in (self, successor], or a hop
// to the closest preceding finger, recursing via RPC until the owner
// answers locally.
func (n *Node) FindSuccessor(ctx context.Context, req *transport.IDRequest) (*transport.AddrResponse, error) {
	start := time.Now()
	addr, err := n.findSuccessor(ctx, req.ID)
	if err != nil {
		n.stats.observeForwardFailure(time.Since(start))
		return nil, err
	}
	return &transport.AddrResponse{Addr: addr}, nil
}

func (n *Node) findSuccessor(ctx context.Context, id ID) (string, error) {
	succ := n.rt.Successor()
	if InInc(id, n.id, n.space.HashString(succ)) {
		n.stats.observeLocalHit(0)
		return succ, nil
	}

	if cached, ok := n.routeCache.get(string(id)); ok {
		return cached, nil
	}

	p := n.rt.closestPrecedingNode(n.id, id)
	if p == n.self {
		// Finger table has nothing useful to offer; successor is the best
		// we can do. Prevents infinite recursion when fingers are empty.
		return succ, nil
	}

	start := time.Now()
	cli, err := n.pool.Remote(p)
	if err != nil {
		return "", &TransportError{Addr: p, Op: "find_successor", Err: err}
	}
	addr, err := cli.FindSuccessor(ctx, id)
	if err != nil {
		n.pool.Evict(p)
		n.stats.observeForwardFailure(time.Since(start))
		return "", err
	}
	n.stats.observeForwarded(time.Since(start))
	n.routeCache.put(string(id), addr)
	return addr, nil
}

// ClosestPrecedingNode answers the RPC of the same name: the furthest
// finger strictly preceding id, or self if none qualifies (§4.4).
func (n *Node) ClosestPrecedingNode(ctx context.Context, req *transport.IDRequest) (*transport.AddrResponse, error) {
	return &transport.AddrResponse{Addr: n.rt.closestPrecedingNode(n.id, req.ID)}, nil
}

// Ping answers a liveness check.
func (n *Node) Ping(ctx context.Context, req *transport.PingRequest) (*transport.PingResponse, error) {
	return &transport.PingResponse{}, nil
}

// CurrentPredecessor answers with this node's predecessor, if any.
func (n *Node) CurrentPredecessor(ctx context.Context, req *transport.PingRequest) (*transport.PredecessorResponse, error) {
	addr, ok := n.rt.Predecessor()
	return &transport.PredecessorResponse{Addr: addr, Present: ok}, nil
}

// Notify is called by a peer claiming to be this node's predecessor
// (§4.3). The claim is accepted only if it moves the predecessor forward
// toward self, never backward, to prevent oscillation.
func (n *Node) Notify(ctx context.Context, req *transport.NotifyRequest) (*transport.NotifyResponse, error) {
	n.applyNotify(req.Addr)
	return &transport.NotifyResponse{}, nil
}

// --- Local KV operations (§4.4): no ownership check, the caller is
// trusted to have routed correctly. This is what makes graceful-leave
// hand-off possible: the successor accepts keys before its own finger
// table would call it the owner. ---

func (n *Node) HasLocalKey(ctx context.Context, req *transport.KeyRequest) (*transport.HasKeyResponse, error) {
	ok, err := n.store.Exists(ctx, req.Key)
	if err != nil {
		return nil, &StoreError{Op: "exists", Err: err}
	}
	return &transport.HasKeyResponse{Present: ok}, nil
}

func (n *Node) GetLocal(ctx context.Context, req *transport.GetRequest) (*transport.ValueResponse, error) {
	v, err := n.store.Get(ctx, req.Key, req.Default)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	return &transport.ValueResponse{Value: v}, nil
}

func (n *Node) SetLocal(ctx context.Context, req *transport.SetRequest) (*transport.SetResponse, error) {
	if err := n.store.Set(ctx, req.Key, req.Value); err != nil {
		return nil, &StoreError{Op: "set", Err: err}
	}
	return &transport.SetResponse{}, nil
}

func (n *Node) RemoveLocal(ctx context.Context, req *transport.RemoveRequest) (*transport.RemoveResponse, error) {
	if err := n.store.Remove(ctx, req.Key); err != nil {
		return nil, &StoreError{Op: "remove", Err: err}
	}
	return &transport.RemoveResponse{}, nil
}

func (n *Node) SetLocalBulk(ctx context.Context, req *transport.BulkSetRequest) (*transport.BulkSetResponse, error) {
	if err := n.store.SetBulk(ctx, req.Items); err != nil {
		return nil, &StoreError{Op: "set_bulk", Err: err}
	}
	return &transport.BulkSetResponse{}, nil
}

// --- Client KV operations (§4.4): resolve the owner via find_successor
// and delegate to its *_local RPC when it isn't self. Forwarding to the
// owner's full Get/Set/Remove instead would make it re-run find_successor
// against its own (self, successor] test rather than trusting the
// already-resolved ownership, which can bounce the request back to the
// caller when fingers are still empty right after a join. ---

func (n *Node) Get(ctx context.Context, req *transport.GetRequest) (*transport.ValueResponse, error) {
	owner, err := n.findSuccessor(ctx, n.space.HashString(req.Key))
	if err != nil {
		return nil, err
	}
	if owner == n.self {
		return n.GetLocal(ctx, req)
	}
	cli, err := n.pool.Remote(owner)
	if err != nil {
		return nil, &TransportError{Addr: owner, Op: "get", Err: err}
	}
	v, err := cli.GetLocal(ctx, req.Key, req.Default)
	if err != nil {
		return nil, err
	}
	return &transport.ValueResponse{Value: v}, nil
}

func (n *Node) Set(ctx context.Context, req *transport.SetRequest) (*transport.SetResponse, error) {
	owner, err := n.findSuccessor(ctx, n.space.HashString(req.Key))
	if err != nil {
		return nil, err
	}
	if owner == n.self {
		return n.SetLocal(ctx, req)
	}
	cli, err := n.pool.Remote(owner)
	if err != nil {
		return nil, &TransportError{Addr: owner, Op: "set", Err: err}
	}
	if err := cli.SetLocal(ctx, req.Key, req.Value); err != nil {
		return nil, err
	}
	return &transport.SetResponse{}, nil
}

func (n *Node) Remove(ctx context.Context, req *transport.RemoveRequest) (*transport.RemoveResponse, error) {
	owner, err := n.findSuccessor(ctx, n.space.HashString(req.Key))
	if err != nil {
		return nil, err
	}
	if owner == n.self {
		return n.RemoveLocal(ctx, req)
	}
	cli, err := n.pool.Remote(owner)
	if err != nil {
		return nil, &TransportError{Addr: owner, Op: "remove", Err: err}
	}
	if err := cli.RemoveLocal(ctx, req.Key); err != nil {
		return nil, err
	}
	return &transport.RemoveResponse{}, nil
}

// Convenience wrappers for callers inside this process (such as tests)
// that would otherwise have to build transport request structs by hand.

func (n *Node) GetValue(ctx context.Context, key string, def []byte) ([]byte, error) {
	resp, err := n.Get(ctx, &transport.GetRequest{Key: key, Default: def})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (n *Node) SetValue(ctx context.Context, key string, value []byte) error {
	_, err := n.Set(ctx, &transport.SetRequest{Key: key, Value: value})
	return err
}

func (n *Node) RemoveValue(ctx context.Context, key string) error {
	_, err := n.Remove(ctx, &transport.RemoveRequest{Key: key})
	return err
}

// DumpState answers with a coherent snapshot of this node's ring position.
func (n *Node) DumpState(ctx context.Context, req *transport.DumpStateRequest) (*transport.DumpStateResponse, error) {
	s := n.rt.Snapshot()
	return &transport.DumpStateResponse{
		Self:        s.Self,
		Successor:   s.Successor,
		Predecessor: s.Predecessor,
		HasPred:     s.Predecessor != "",
		Fingers:     s.Fingers,
	}, nil
}

// DumpDB answers with the entire local store, for the /db-dump page and
// `chordctl dump-db`.
func (n *Node) DumpDB(ctx context.Context, req *transport.DumpDBRequest) (*transport.DumpDBResponse, error) {
	items, err := n.store.GetAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "get_all", Err: err}
	}
	return &transport.DumpDBResponse{Items: items}, nil
}
