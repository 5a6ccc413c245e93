package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainMessage = "duet/message/v1"
	DomainClass   = "duet/class/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MessageID computes the content-addressed ID of a sync message.
// Two messages with the same kind, instance, name, value, origin and seq
// share an ID, which lets the journal ignore duplicate records.
func MessageID(m Message) (string, error) {
	canonical, err := EncodeMessage(m)
	if err != nil {
		return "", fmt.Errorf("MessageID: %w", err)
	}
	return hashWithDomain(DomainMessage, canonical), nil
}

// ClassHash computes a stable hash over a class declaration. Equal
// declarations produce equal hashes regardless of map iteration order.
func ClassHash(decl ClassDecl) (string, error) {
	props := make(IRArray, len(decl.Properties))
	for i, p := range decl.Properties {
		def := p.Default
		if def == nil {
			def = IRString("")
		}
		props[i] = IRObject{
			"name":      IRString(p.Name),
			"scope":     IRString(p.Scope),
			"default":   def,
			"validator": specObject(p.Validator.Kind, p.Validator.Args),
		}
	}
	events := make(IRArray, len(decl.Events))
	for i, e := range decl.Events {
		events[i] = IRObject{"name": IRString(e.Name), "scope": IRString(e.Scope)}
	}
	handlers := make(IRArray, len(decl.Handlers))
	for i, h := range decl.Handlers {
		handlers[i] = IRObject{
			"name":   IRString(h.Name),
			"event":  IRString(h.Event),
			"scope":  IRString(h.Scope),
			"action": specObject(h.Action.Kind, h.Action.Args),
		}
	}
	bases := make(IRArray, len(decl.Bases))
	for i, b := range decl.Bases {
		bases[i] = IRString(b)
	}

	canonical, err := MarshalCanonical(IRObject{
		"name":       IRString(decl.Name),
		"bases":      bases,
		"properties": props,
		"events":     events,
		"handlers":   handlers,
	})
	if err != nil {
		return "", fmt.Errorf("ClassHash: %w", err)
	}
	return hashWithDomain(DomainClass, canonical), nil
}

func specObject(kind string, args IRObject) IRObject {
	if args == nil {
		args = IRObject{}
	}
	return IRObject{"kind": IRString(kind), "args": args}
}
