package ir

import "fmt"

// Realm identifies one of the two execution contexts hosting a copy of an
// object.
type Realm string

const (
	RealmA Realm = "a"
	RealmB Realm = "b"
)

// Realms lists both realms in a fixed order.
var Realms = []Realm{RealmA, RealmB}

// Peer returns the other realm.
func (r Realm) Peer() Realm {
	if r == RealmA {
		return RealmB
	}
	return RealmA
}

// Valid reports whether r is RealmA or RealmB.
func (r Realm) Valid() bool {
	return r == RealmA || r == RealmB
}

// ParseRealm converts "a"/"b" (case-insensitive "A"/"B") into a Realm.
func ParseRealm(s string) (Realm, error) {
	switch s {
	case "a", "A":
		return RealmA, nil
	case "b", "B":
		return RealmB, nil
	}
	return "", fmt.Errorf("unknown realm %q: must be a or b", s)
}

// Scope is the declaration scope of a property, event or handler: the realm
// tag fixed at class-declaration time.
type Scope string

const (
	// ScopeShared declarations are visible in both realms and kept convergent.
	ScopeShared Scope = "shared"
	// ScopeA declarations exist only in realm A.
	ScopeA Scope = "a"
	// ScopeB declarations exist only in realm B.
	ScopeB Scope = "b"
)

// Scopes lists the declaration scopes in the order a class body is read.
var Scopes = []Scope{ScopeShared, ScopeA, ScopeB}

// Valid reports whether s is one of the three scopes.
func (s Scope) Valid() bool {
	return s == ScopeShared || s == ScopeA || s == ScopeB
}

// Visible reports whether a declaration in this scope exists in realm r.
func (s Scope) Visible(r Realm) bool {
	return s == ScopeShared || s.LocalTo(r)
}

// LocalTo reports whether this scope names exactly realm r.
func (s Scope) LocalTo(r Realm) bool {
	return (s == ScopeA && r == RealmA) || (s == ScopeB && r == RealmB)
}

// LocalScope returns the realm-only scope for r.
func LocalScope(r Realm) Scope {
	if r == RealmA {
		return ScopeA
	}
	return ScopeB
}
