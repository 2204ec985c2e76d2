package types

import "strings"

// Kind is the stable type tag carried by every Payload and declared by every
// port. Connection compatibility is decided from Kind tags once at connect
// time; emissions only re-check the payload's own tag against its port.
type Kind string

// Built-in kinds. Elements are free to declare their own tags; the core only
// interprets KindAny and the list<T> marker.
const (
	KindAny        Kind = "any"
	KindText       Kind = "text"
	KindMessage    Kind = "message"
	KindStructured Kind = "structured"
	KindSchema     Kind = "schema"
)

// KindMessageList is the kind of an ordered message sequence, the output
// shape of the aggregation engine.
var KindMessageList = ListOf(KindMessage)

// ListOf returns the kind tag for a homogeneous sequence of k.
func ListOf(k Kind) Kind {
	return Kind("list<" + string(k) + ">")
}

// IsList reports whether k tags a sequence kind.
func (k Kind) IsList() bool {
	return strings.HasPrefix(string(k), "list<") && strings.HasSuffix(string(k), ">")
}

// Elem returns the element kind of a sequence kind, or k itself when k is
// not a sequence.
func (k Kind) Elem() Kind {
	if !k.IsList() {
		return k
	}
	return Kind(strings.TrimSuffix(strings.TrimPrefix(string(k), "list<"), ">"))
}

// Compatible reports whether a payload produced with kind `out` may cross an
// edge into a port declared with kind `in`.
//
// Rules, checked in order:
//   - KindAny on either side matches everything.
//   - Identical kinds match.
//   - list<A> → list<B> matches when A → B matches.
//   - A → list<B> matches when A → B matches; the receiving port promotes
//     the scalar to a one-element sequence.
//   - list<A> → B never matches: a sequence is not silently collapsed.
func Compatible(out, in Kind) bool {
	if out == KindAny || in == KindAny {
		return true
	}
	if out == in {
		return true
	}
	switch {
	case out.IsList() && in.IsList():
		return Compatible(out.Elem(), in.Elem())
	case !out.IsList() && in.IsList():
		return Compatible(out, in.Elem())
	default:
		return false
	}
}
