package diskv2

import "encoding/json"

// EventCounter is implemented by values that know their own event count,
// so a JSON-backed Codec can fill in the frame header without a type
// switch per call site.
type EventCounter interface {
	EventCount() uint32
}

// JSONCodec is the default Codec for disk_v2, used when the buffered
// type implements EventCounter (event.Array does).
type JSONCodec[T EventCounter] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

func (JSONCodec[T]) Count(v T) uint32 { return v.EventCount() }
