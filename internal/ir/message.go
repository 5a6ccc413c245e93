package ir

import (
	"encoding/json"
	"fmt"
)

// MessageKind distinguishes the two sync message kinds.
type MessageKind string

const (
	// KindPropertySet carries a shared property write.
	KindPropertySet MessageKind = "property_set"
	// KindEventBatch carries the payloads of a shared event emitted since the
	// sender's previous flush.
	KindEventBatch MessageKind = "event_batch"
)

// Message is a sync message exchanged between the two realm instances of one
// logical object.
//
// Seq is the sender's logical clock. Hops counts how many times a property
// value has bounced between realms through re-validation; it is diagnostic
// only and never limits delivery.
type Message struct {
	Kind       MessageKind `json:"kind"`
	InstanceID string      `json:"instance_id"`
	Name       string      `json:"name"`
	Value      IRValue     `json:"value,omitempty"`
	Payloads   IRArray     `json:"payloads,omitempty"`
	Origin     Realm       `json:"origin"`
	Seq        int64       `json:"seq"`
	Hops       int64       `json:"hops"`
}

// toObject builds the canonical form of a message.
func (m Message) toObject() IRObject {
	obj := IRObject{
		"kind":        IRString(m.Kind),
		"instance_id": IRString(m.InstanceID),
		"name":        IRString(m.Name),
		"origin":      IRString(m.Origin),
		"seq":         IRInt(m.Seq),
		"hops":        IRInt(m.Hops),
	}
	switch m.Kind {
	case KindPropertySet:
		obj["value"] = m.Value
	case KindEventBatch:
		payloads := m.Payloads
		if payloads == nil {
			payloads = IRArray{}
		}
		obj["payloads"] = payloads
	}
	return obj
}

// EncodeMessage serializes a message to canonical JSON.
func EncodeMessage(m Message) ([]byte, error) {
	switch m.Kind {
	case KindPropertySet:
		if m.Value == nil {
			return nil, fmt.Errorf("encode %s %q: missing value", m.Kind, m.Name)
		}
	case KindEventBatch:
	default:
		return nil, fmt.Errorf("encode message: unknown kind %q", m.Kind)
	}
	data, err := MarshalCanonical(m.toObject())
	if err != nil {
		return nil, fmt.Errorf("encode %s %q: %w", m.Kind, m.Name, err)
	}
	return data, nil
}

// DecodeMessage parses a message produced by EncodeMessage.
func DecodeMessage(data []byte) (Message, error) {
	var raw struct {
		Kind       MessageKind     `json:"kind"`
		InstanceID string          `json:"instance_id"`
		Name       string          `json:"name"`
		Value      json.RawMessage `json:"value"`
		Payloads   IRArray         `json:"payloads"`
		Origin     Realm           `json:"origin"`
		Seq        int64           `json:"seq"`
		Hops       int64           `json:"hops"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	m := Message{
		Kind:       raw.Kind,
		InstanceID: raw.InstanceID,
		Name:       raw.Name,
		Payloads:   raw.Payloads,
		Origin:     raw.Origin,
		Seq:        raw.Seq,
		Hops:       raw.Hops,
	}
	switch m.Kind {
	case KindPropertySet:
		if len(raw.Value) == 0 {
			return Message{}, fmt.Errorf("decode message: %s %q has no value", m.Kind, m.Name)
		}
		v, err := UnmarshalIRValue(raw.Value)
		if err != nil {
			return Message{}, fmt.Errorf("decode message value: %w", err)
		}
		m.Value = v
	case KindEventBatch:
		if m.Payloads == nil {
			m.Payloads = IRArray{}
		}
	default:
		return Message{}, fmt.Errorf("decode message: unknown kind %q", m.Kind)
	}
	if m.InstanceID == "" {
		return Message{}, fmt.Errorf("decode message: missing instance_id")
	}
	return m, nil
}
