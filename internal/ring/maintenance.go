package ring

import (
	"context"
	"sync"
	"time"

	"chordring/internal/logger"
)

// maintenanceLoop runs the three independent background tickers described
// in §4.3: stabilize and check_predecessor once per maintenanceInterval,
// fix_fingers four times as often, so each stabilize/check_predecessor
// round is matched by four finger repairs and a full pass over fingers
// 1..m-1 takes about (m-1)/4 rounds.
func (n *Node) maintenanceLoop() {
	defer n.wg.Done()

	var sub sync.WaitGroup
	sub.Add(3)
	go func() { defer sub.Done(); n.stabilizeLoop() }()
	go func() { defer sub.Done(); n.fixFingersLoop() }()
	go func() { defer sub.Done(); n.checkPredecessorLoop() }()
	sub.Wait()
}

func (n *Node) stabilizeLoop() {
	ticker := time.NewTicker(n.maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.stabilize()
		}
	}
}

func (n *Node) fixFingersLoop() {
	interval := n.maintenanceInterval / 4
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.fixFinger()
		}
	}
}

func (n *Node) checkPredecessorLoop() {
	ticker := time.NewTicker(n.maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.checkPredecessor()
		}
	}
}

// stabilize discovers a closer successor and asserts self to it as
// predecessor (§4.3). All RPCs are single-attempt with a short timeout;
// failures log and leave state unchanged, except an unreachable successor,
// which is replaced with a fallback so the ring can heal around a single
// dead node (§8 S4) rather than sticking to a dead pointer forever.
func (n *Node) stabilize() {
	succ := n.rt.Successor()
	if succ == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.pool.Timeout())
	defer cancel()

	var x string
	var present bool
	if succ == n.self {
		// Local read: a singleton learns its first peer through the
		// predecessor that peer's notify installed.
		x, present = n.rt.Predecessor()
	} else {
		cli, err := n.pool.Remote(succ)
		if err != nil {
			n.lgr.Warn("stabilize: failed to reach successor", logger.F("successor", succ), logger.F("err", err))
			n.replaceDeadSuccessor(succ)
			return
		}

		x, present, err = cli.CurrentPredecessor(ctx)
		if err != nil {
			n.lgr.Warn("stabilize: get predecessor failed", logger.F("successor", succ), logger.F("err", err))
			n.pool.Evict(succ)
			n.replaceDeadSuccessor(succ)
			return
		}
	}

	if present && x != succ && InExc(n.space.HashString(x), n.id, n.space.HashString(succ)) {
		n.rt.SetSuccessor(x)
		n.routeCache.clear()
		succ = x
	}

	if succ == n.self {
		// Calling notify on ourselves goes through the same non-nested,
		// short critical sections as a remote notify; no reentrant lock
		// is needed.
		n.applyNotify(n.self)
		return
	}

	cli, err := n.pool.Remote(succ)
	if err != nil {
		n.lgr.Warn("stabilize: failed to reach successor for notify", logger.F("successor", succ), logger.F("err", err))
		return
	}
	if err := cli.Notify(ctx, n.self); err != nil {
		n.lgr.Warn("stabilize: notify failed", logger.F("successor", succ), logger.F("err", err))
	}
}

// replaceDeadSuccessor promotes the current predecessor to successor when
// the successor is unreachable (§8 S4). This module carries no successor
// list (best-effort hand-off only, per spec's Non-goals), so the
// predecessor is the only other ring position a node already knows
// without an extra RPC; subsequent stabilize rounds correct it further
// once the survivors' own predecessor/successor pointers settle.
func (n *Node) replaceDeadSuccessor(dead string) {
	pred, ok := n.rt.Predecessor()
	if !ok || pred == n.self || pred == dead {
		n.lgr.Warn("stabilize: successor unreachable, no fallback available", logger.F("dead", dead))
		return
	}
	n.rt.SetSuccessor(pred)
	n.routeCache.clear()
	n.lgr.Warn("stabilize: successor unreachable, falling back to predecessor",
		logger.F("dead", dead), logger.F("fallback", pred))
}

// applyNotify is the local-call path shared by Notify (remote) and
// stabilize's self-notify case: accept other as predecessor only if it
// moves the pointer forward toward self, never backward (§4.3).
func (n *Node) applyNotify(other string) {
	if other == "" || other == n.self {
		return
	}
	pred, ok := n.rt.Predecessor()
	if !ok || InExc(n.space.HashString(other), n.space.HashString(pred), n.id) {
		n.rt.SetPredecessor(other)
		n.routeCache.clear()
	}
}

// fixFinger refreshes one finger per call, round-robin over [1, m-1].
// On RPC failure the finger is ejected rather than left stale: finger
// inaccuracy degrades routing to linear but never breaks correctness.
func (n *Node) fixFinger() {
	i := n.rt.nextFingerIndex()
	target := n.space.AddPow2(n.id, i)

	ctx, cancel := context.WithTimeout(context.Background(), n.pool.Timeout())
	defer cancel()

	addr, err := n.findSuccessor(ctx, target)
	if err != nil {
		n.rt.SetFinger(i, "")
		n.lgr.Debug("fix_fingers: lookup failed, ejecting finger",
			logger.F("index", i), logger.F("err", err))
		return
	}
	n.rt.SetFinger(i, addr)
}

// checkPredecessor pings the current predecessor and clears it on
// failure, the only "error implies state change" action in the protocol
// (§7): a stale predecessor would refuse legitimate notifies forever.
func (n *Node) checkPredecessor() {
	pred, ok := n.rt.Predecessor()
	if !ok || pred == n.self {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.pool.Timeout())
	defer cancel()

	cli, err := n.pool.Remote(pred)
	if err != nil {
		n.rt.ClearPredecessor()
		return
	}
	if err := cli.Ping(ctx); err != nil {
		n.pool.Evict(pred)
		n.rt.ClearPredecessor()
	}
}
