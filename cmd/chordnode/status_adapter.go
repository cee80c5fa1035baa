package main

import (
	"context"

	"chordring/internal/httpstatus"
	"chordring/internal/ring"
	"chordring/internal/transport"
)

// statusAdapter narrows *ring.Node to the httpstatus.Node interface so
// internal/httpstatus never needs to import internal/ring.
type statusAdapter struct {
	node *ring.Node
}

func (a statusAdapter) SelfAddr() string { return a.node.SelfAddr() }

func (a statusAdapter) SelfID() []byte { return a.node.SelfID() }

func (a statusAdapter) Snapshot() httpstatus.NodeSnapshot {
	s := a.node.Snapshot()
	return httpstatus.NodeSnapshot{
		Self:        s.Self,
		Successor:   s.Successor,
		Predecessor: s.Predecessor,
		Fingers:     s.Fingers,
	}
}

func (a statusAdapter) LocalKeyCount(ctx context.Context) (int, error) {
	return a.node.LocalKeyCount(ctx)
}

func (a statusAdapter) DumpDB(ctx context.Context) (map[string][]byte, error) {
	resp, err := a.node.DumpDB(ctx, &transport.DumpDBRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
