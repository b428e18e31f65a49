package server

import (
	"encoding/json"

	"connectrpc.com/connect"
	"github.com/vmihailenco/msgpack/v5"
)

// Messages are plain Go structs, so the proto-based default codecs can't
// carry them. jsonCodec takes over the "json" name (application/json) and
// msgpackCodec adds application/msgpack.
var (
	_ connect.Codec = jsonCodec{}
	_ connect.Codec = msgpackCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return msgpack.Unmarshal(data, v)
}

// codecOptions registers both codecs on a handler.
func codecOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithCodec(msgpackCodec{}),
	}
}
