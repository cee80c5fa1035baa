package ring

import "sync"

// routingTable holds a node's mutable ring-position state: successor,
// predecessor, finger table and the fix_fingers round-robin cursor (§4.2).
//
// Every method takes and releases the lock itself and never calls another
// locking method while holding it, so there is no need for a genuinely
// reentrant mutex even though stabilize logically "calls notify on itself"
// when successor == self: that call goes through the same short,
// non-nested critical sections as any remote notify.
type routingTable struct {
	mu sync.RWMutex

	self  string
	space Space

	successor   string
	predecessor string // "" means absent
	fingers     []string // fingers[0] is unused; round-robin starts at 1
	cursor      int      // next finger index to repair, in [1, space.Bits-1]
}

func newRoutingTable(self string, space Space) *routingTable {
	rt := &routingTable{
		self:      self,
		space:     space,
		successor: self,
		fingers:   make([]string, space.Bits),
		cursor:    1,
	}
	if len(rt.fingers) > 0 {
		rt.fingers[0] = self
	}
	return rt
}

func (rt *routingTable) Successor() string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.successor
}

func (rt *routingTable) SetSuccessor(addr string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.successor = addr
	if len(rt.fingers) > 0 {
		rt.fingers[0] = addr
	}
}

func (rt *routingTable) Predecessor() (addr string, ok bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.predecessor, rt.predecessor != ""
}

func (rt *routingTable) SetPredecessor(addr string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = addr
}

func (rt *routingTable) ClearPredecessor() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = ""
}

// nextFingerIndex returns the current fix_fingers cursor and advances it,
// wrapping around [1, space.Bits-1]. Finger 0 is handled by successor
// logic directly and excluded from round-robin repair (§4.2).
func (rt *routingTable) nextFingerIndex() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	i := rt.cursor
	rt.cursor++
	if rt.cursor >= rt.space.Bits {
		rt.cursor = 1
	}
	return i
}

// Finger returns fingers[i], or "" if absent or i is out of range.
func (rt *routingTable) Finger(i int) string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if i < 0 || i >= len(rt.fingers) {
		return ""
	}
	return rt.fingers[i]
}

// SetFinger installs (or, with addr=="", ejects) fingers[i].
func (rt *routingTable) SetFinger(i int, addr string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if i >= 0 && i < len(rt.fingers) {
		rt.fingers[i] = addr
	}
}

// Fingers returns a snapshot of the whole finger table, for the status
// page and dump_state. Index 0 always mirrors the successor.
func (rt *routingTable) Fingers() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]string, len(rt.fingers))
	copy(out, rt.fingers)
	return out
}

// closestPrecedingNode scans fingers from index m-1 down to 1 and returns
// the first non-absent entry strictly preceding id on the ring; self if
// none qualifies (§4.4).
func (rt *routingTable) closestPrecedingNode(selfID ID, id ID) string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for i := len(rt.fingers) - 1; i >= 1; i-- {
		f := rt.fingers[i]
		if f == "" {
			continue
		}
		if InExc(rt.space.HashString(f), selfID, id) {
			return f
		}
	}
	return rt.self
}

// snapshot is a coherent copy of all node-state fields, used by the status
// page and dump_state.
type snapshot struct {
	Self        string
	Successor   string
	Predecessor string // "" means absent
	Fingers     []string
}

func (rt *routingTable) Snapshot() snapshot {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	fingers := make([]string, len(rt.fingers))
	copy(fingers, rt.fingers)
	return snapshot{
		Self:        rt.self,
		Successor:   rt.successor,
		Predecessor: rt.predecessor,
		Fingers:     fingers,
	}
}
