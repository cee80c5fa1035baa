package transport

// Every request/response pair below is JSON-marshaled as-is (see codec.go).
// Field names are normative: nodes built from different revisions of this
// package must still interoperate over the same wire shapes (§6).

type PingRequest struct{}

type PingResponse struct{}

// IDRequest carries a ring identifier, e.g. for find_successor and
// closest_preceding_node.
type IDRequest struct {
	ID []byte `json:"id"`
}

// AddrResponse carries a single peer address.
type AddrResponse struct {
	Addr string `json:"addr"`
}

// PredecessorResponse carries the optional predecessor address; Present is
// false when the node has no predecessor.
type PredecessorResponse struct {
	Addr    string `json:"addr"`
	Present bool   `json:"present"`
}

type NotifyRequest struct {
	Addr string `json:"addr"`
}

type NotifyResponse struct{}

type KeyRequest struct {
	Key string `json:"key"`
}

type HasKeyResponse struct {
	Present bool `json:"present"`
}

// GetRequest carries a key lookup plus the default value to return when
// the key is absent, matching the store's get(key, default) contract.
type GetRequest struct {
	Key     string `json:"key"`
	Default []byte `json:"default"`
}

type ValueResponse struct {
	Value []byte `json:"value"`
}

type SetRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

type SetResponse struct{}

type RemoveRequest struct {
	Key string `json:"key"`
}

type RemoveResponse struct{}

// BulkSetRequest carries a full snapshot for graceful-leave hand-off.
type BulkSetRequest struct {
	Items map[string][]byte `json:"items"`
}

type BulkSetResponse struct{}

// DumpStateResponse is the coherent node-state snapshot backing dump_state
// and the status page.
type DumpStateResponse struct {
	Self        string   `json:"self"`
	Successor   string   `json:"successor"`
	Predecessor string   `json:"predecessor"`
	HasPred     bool     `json:"has_predecessor"`
	Fingers     []string `json:"fingers"`
}

type DumpStateRequest struct{}

type DumpDBResponse struct {
	Items map[string][]byte `json:"items"`
}

type DumpDBRequest struct{}
