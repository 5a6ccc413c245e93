// Package model holds the class table of the dual-realm object model.
//
// A class is declared once through Registry.Declare. Declaration runs the
// merge resolver over the class's method-resolution order and produces an
// immutable result:
//
//   - one Manifest per realm: the properties, events and handlers visible in
//     that realm, with no two descriptors sharing a name
//   - one Unit per realm: the generated realm-side implementation, holding a
//     body only for names the class owns and a reference to the owning
//     ancestor's unit for everything it inherits unchanged
//
// Descriptors are created once, by the class whose body declares them, and
// are shared by reference with every subclass that does not redeclare them.
//
// DECLARATION RULES:
//
// A name may appear once per class body across all scopes and across
// properties and events (DUPLICATE_DECLARATION). A subclass may redeclare an
// inherited name to override it, but only in the same scope and as the same
// kind of member (REALM_CONFLICT). Handlers are keyed by scope, event and
// handler name: reusing a key overrides the inherited handler, a new key adds one.
package model
