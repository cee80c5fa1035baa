// Package bootstrap resolves the peer(s) a node should contact to join an
// existing ring, and optionally advertises the node's own address so
// later joiners can find it.
package bootstrap

import "context"

// Bootstrap discovers candidate peers to join through, and optionally
// registers/deregisters this node's own address for future discovery.
// Discover returning an empty slice with a nil error means "no peers
// known, create a new ring".
type Bootstrap interface {
	Discover(ctx context.Context) ([]string, error)
	Register(ctx context.Context, self string) error
	Deregister(ctx context.Context, self string) error
}

// Static is the required bootstrap mode: a single, operator-supplied
// remote node address (the CLI's --remote-node flag), or none at all.
type Static struct {
	peer string
}

// NewStatic builds a Static bootstrap. An empty peer means this node
// starts a new ring.
func NewStatic(peer string) *Static {
	return &Static{peer: peer}
}

func (s *Static) Discover(ctx context.Context) ([]string, error) {
	if s.peer == "" {
		return nil, nil
	}
	return []string{s.peer}, nil
}

// Register and Deregister are no-ops: static bootstrap has no directory to
// update, the next joiner is simply told the same address out of band.
func (s *Static) Register(ctx context.Context, self string) error   { return nil }
func (s *Static) Deregister(ctx context.Context, self string) error { return nil }
