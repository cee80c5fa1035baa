// Package ring implements a single Chord node: identifier arithmetic, the
// finger table and its incremental repair, the successor/predecessor
// state machine, and routing of get/set/remove to the responsible peer.
// Everything outside the overlay itself (durable storage, RPC transport,
// logging, CLI) is a collaborator this package depends on through narrow
// interfaces.
package ring

import (
	"context"
	"sync"
	"time"

	"chordring/internal/logger"
	"chordring/internal/store"
	"chordring/internal/transport"
)

// Store is the durable local KV collaborator a Node depends on (§6).
type Store interface {
	Get(ctx context.Context, key string, def []byte) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	GetAll(ctx context.Context) (map[string][]byte, error)
	Count(ctx context.Context) (int, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	SetBulk(ctx context.Context, m map[string][]byte) error
}

var _ Store = (*store.Store)(nil)

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger attaches a structured logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) { n.lgr = l }
}

// WithRouteCache overrides the default routing-result cache TTL/capacity.
func WithRouteCache(ttl time.Duration, capacity int) Option {
	return func(n *Node) { n.routeCache = newRouteCache(ttl, capacity) }
}

// WithMaintenanceInterval overrides the default 3-second maintenance
// cadence (§4.3). Exposed for tests that want fast convergence.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(n *Node) { n.maintenanceInterval = d }
}

// Node is one peer in the Chord ring: its own address and identifier, the
// mutable routing table (C2), and the collaborators it routes through
// (durable store, RPC pool).
type Node struct {
	lgr logger.Logger

	space Space
	self  string
	id    ID

	rt    *routingTable
	store Store
	pool  *transport.Pool

	routeCache *routeCache
	stats      *routingStats

	maintenanceInterval time.Duration

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ transport.ChordServer = (*Node)(nil)

// New builds a Node for self (its own advertised address) over the given
// identifier space, store and connection pool. It does not start the
// background maintenance worker or establish ring membership; call
// Initialize for that.
func New(space Space, self string, st Store, pool *transport.Pool, opts ...Option) *Node {
	n := &Node{
		lgr:                 logger.NopLogger{},
		space:               space,
		self:                self,
		id:                  space.HashString(self),
		store:               st,
		pool:                pool,
		routeCache:          newRouteCache(2*time.Second, 4096),
		stats:               newRoutingStats(),
		maintenanceInterval: 3 * time.Second,
		stopCh:              make(chan struct{}),
	}
	n.rt = newRoutingTable(self, space)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SelfID returns the node's own identifier, H(self).
func (n *Node) SelfID() ID { return n.id }

// SelfAddr returns the node's own advertised address.
func (n *Node) SelfAddr() string { return n.self }

// Space returns the node's identifier space.
func (n *Node) Space() Space { return n.space }

// Initialize ensures the store schema exists (for stores that expose an
// idempotent WriteSchema, as *store.Store does) and establishes ring
// membership: a fresh singleton ring if bootstrapAddr is empty, or a join
// via bootstrapAddr.find_successor(self) otherwise (§3 Lifecycle). It then
// starts the background maintenance worker (§4.3).
func (n *Node) Initialize(ctx context.Context, bootstrapAddr string) error {
	if ws, ok := n.store.(interface{ WriteSchema() error }); ok {
		if err := ws.WriteSchema(); err != nil {
			return &StoreError{Op: "write_schema", Err: err}
		}
	}

	if bootstrapAddr == "" {
		n.lgr.Info("creating new ring", logger.F("self", n.self))
		// routingTable already starts as successor=self, predecessor absent.
	} else {
		n.lgr.Info("joining ring", logger.F("self", n.self), logger.F("bootstrap", bootstrapAddr))
		cli, err := n.pool.Remote(bootstrapAddr)
		if err != nil {
			return &TransportError{Addr: bootstrapAddr, Op: "join", Err: err}
		}
		succAddr, err := cli.FindSuccessor(ctx, n.id)
		if err != nil {
			n.pool.Evict(bootstrapAddr)
			return &TransportError{Addr: bootstrapAddr, Op: "join/find_successor", Err: err}
		}
		n.rt.SetSuccessor(succAddr)
		n.lgr.Info("joined ring", logger.F("successor", succAddr))
	}

	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return nil
	}
	n.started = true
	n.mu.Unlock()

	n.wg.Add(1)
	go n.maintenanceLoop()
	return nil
}

// Shutdown hands off this node's local KV contents to its successor (best
// effort), signals the background worker to stop, and waits up to 30
// seconds for it to exit (§5 Cancellation). It does not close the
// connection pool; callers that own the pool should close it afterward.
func (n *Node) Shutdown(ctx context.Context) {
	n.leaveHandoff(ctx)

	n.stopOnce.Do(func() { close(n.stopCh) })

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		n.lgr.Warn("maintenance worker did not stop within deadline")
	}
}

func (n *Node) leaveHandoff(ctx context.Context) {
	succAddr := n.rt.Successor()
	if succAddr == "" || succAddr == n.self {
		return
	}

	snapshot, err := n.store.GetAll(ctx)
	if err != nil {
		n.lgr.Warn("leave: failed to snapshot local store", logger.F("err", err))
		return
	}
	if len(snapshot) == 0 {
		return
	}

	cli, err := n.pool.Remote(succAddr)
	if err != nil {
		n.lgr.Warn("leave: failed to reach successor", logger.F("successor", succAddr), logger.F("err", err))
		return
	}
	if err := cli.SetLocalBulk(ctx, snapshot); err != nil {
		n.lgr.Warn("leave: hand-off failed", logger.F("successor", succAddr), logger.F("err", err))
		return
	}
	n.lgr.Info("leave: handed off local store", logger.F("successor", succAddr), logger.F("count", len(snapshot)))
}

// Snapshot returns a coherent view of the node's routing state, for the
// status page and dump_state.
func (n *Node) Snapshot() snapshot {
	return n.rt.Snapshot()
}

// Metrics returns the current routing-metrics snapshot.
func (n *Node) Metrics() RoutingMetrics {
	return n.stats.snapshot()
}

// RouteCacheStats returns the current routing-result cache statistics.
func (n *Node) RouteCacheStats() routeCacheStats {
	return n.routeCache.snapshot()
}

// LocalKeyCount returns the number of keys in the local store, for the
// status page.
func (n *Node) LocalKeyCount(ctx context.Context) (int, error) {
	return n.store.Count(ctx)
}
