package driver

import "github.com/cuemby/flowd/pkg/event"

// FieldPartitioner partitions log events by the string value of one
// top-level field (e.g. a "stream" or "index" field), falling back to
// the given default key when the field is absent or not a string —
// the common case for sinks with per-tenant or per-index destinations.
type FieldPartitioner struct {
	Field      string
	DefaultKey PartitionKey
}

func (p FieldPartitioner) Partition(e event.Event) PartitionKey {
	log := e.Log()
	if log == nil {
		return p.DefaultKey
	}
	v, ok := log.Get(p.Field)
	if !ok || v.Kind != event.ValueBytes {
		return p.DefaultKey
	}
	return PartitionKey(v.Bytes)
}
