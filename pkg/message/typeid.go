package message

import (
	"reflect"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// TypeID is a stable identifier for a registered Go type. It is computed
// once at first use from the type's package path and name and cached
// thereafter, rather than relying on Go's interface type descriptors —
// those are stable within one build but not guaranteed stable across
// compilation units or binary versions, which the handler table's
// registration contract requires (see Design Notes, "Run-time type
// identification").
type TypeID uint64

var (
	typeIDCache   sync.Map // reflect.Type -> TypeID
	typeNameCache sync.Map // TypeID -> string (for diagnostics)
)

// TypeIDOf returns the stable TypeID for T, registering it on first call.
func TypeIDOf[T any]() TypeID {
	var zero T
	t := reflect.TypeOf(zero)
	return typeIDFor(t)
}

func typeIDFor(t reflect.Type) TypeID {
	if t == nil {
		// Untyped nil: collapse to a single well-known id rather than
		// panicking, since fallback dispatch needs to reason about
		// messages whose static type is interface{}(nil).
		t = reflect.TypeOf((*any)(nil)).Elem()
	}
	if v, ok := typeIDCache.Load(t); ok {
		return v.(TypeID)
	}

	name := t.PkgPath() + "." + t.String()
	sum := blake2b.Sum512([]byte(name))
	var id uint64
	for i := 0; i < 8; i++ {
		id = id<<8 | uint64(sum[i])
	}
	tid := TypeID(id)

	actual, loaded := typeIDCache.LoadOrStore(t, tid)
	if loaded {
		return actual.(TypeID)
	}
	typeNameCache.Store(tid, t.String())
	return tid
}

// Name returns the registered type name for a TypeID, for logging and
// diagnostics only — it is never used for dispatch decisions.
func (id TypeID) Name() string {
	if v, ok := typeNameCache.Load(id); ok {
		return v.(string)
	}
	return "<unregistered>"
}
