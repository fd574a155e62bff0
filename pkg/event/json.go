package event

import (
	"encoding/json"
	"time"
)

// wireEvent is the on-the-wire shape of an Event: used both by
// Event.MarshalJSON (for the disk_v2 buffer's default codec) and by any
// sink encoder that serializes to JSON. Finalizers never survive a
// marshal/unmarshal round trip — they are in-process completion handles
// with no durable representation, so a replayed event starts with a
// fresh, empty finalizer set.
type wireEvent struct {
	Kind   Kind        `json:"kind"`
	Log    *LogPayload `json:"log,omitempty"`
	Metric *Metric     `json:"metric,omitempty"`
	Trace  *Trace      `json:"trace,omitempty"`

	SourceID string `json:"source_id,omitempty"`
	Ingested int64  `json:"ingested_unix_nano,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Kind:     e.kind,
		Log:      e.log,
		Metric:   e.metric,
		Trace:    e.trace,
		SourceID: e.Metadata.SourceID,
	}
	if !e.Metadata.Ingested.IsZero() {
		w.Ingested = e.Metadata.Ingested.UnixNano()
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Event{
		kind:   w.Kind,
		log:    w.Log,
		metric: w.Metric,
		trace:  w.Trace,
		shared: new(bool),
		Metadata: Metadata{
			SourceID: w.SourceID,
		},
	}
	if w.Ingested != 0 {
		e.Metadata.Ingested = time.Unix(0, w.Ingested).UTC()
	}
	return nil
}

// wireLogPayload is LogPayload's on-the-wire shape: order is carried
// explicitly since map iteration order is not stable.
type wireLogPayload struct {
	Order  []string         `json:"order"`
	Fields map[string]Value `json:"fields"`
}

func (l LogPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireLogPayload{Order: l.order, Fields: l.fields})
}

func (l *LogPayload) UnmarshalJSON(b []byte) error {
	var w wireLogPayload
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	l.order = w.Order
	l.fields = w.Fields
	if l.fields == nil {
		l.fields = make(map[string]Value)
	}
	return nil
}

// EventCount implements diskv2.EventCounter.
func (a Array) EventCount() uint32 { return uint32(a.Len()) }

// wireArray is Array's on-the-wire shape.
type wireArray struct {
	Kind   Kind    `json:"kind"`
	Events []Event `json:"events"`
}

func (a Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireArray{Kind: a.kind, Events: a.events})
}

func (a *Array) UnmarshalJSON(b []byte) error {
	var w wireArray
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	a.kind = w.Kind
	a.events = w.Events
	return nil
}
