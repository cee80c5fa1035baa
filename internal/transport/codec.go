// Package transport is the RPC adapter presenting a remote Chord node's
// operation surface (§4.5) as a concrete Go interface over gRPC. Wire
// messages use only primitive Go types so this package never imports
// internal/ring, keeping it a leaf dependency.
package transport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec replaces gRPC's default protobuf codec with plain JSON, so the
// wire messages below can be ordinary structs instead of protoc-generated
// types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

// Codec is forced on both the server (grpc.ForceServerCodec) and every
// client connection (grpc.ForceCodec) so neither side ever falls back to
// gRPC's registered "proto" codec.
var Codec encoding.Codec = jsonCodec{}

func init() {
	// Also register under its own name, in case a future caller dials
	// without explicitly forcing the codec.
	encoding.RegisterCodec(Codec)
}
