// Package equality implements the structural comparison the store uses to
// decide whether a state transition is observable.
package equality

import (
	"math"
	"reflect"
	"regexp"
	"time"
)

var (
	timeType   = reflect.TypeOf(time.Time{})
	regexpType = reflect.TypeOf((*regexp.Regexp)(nil))
)

// visit records which right-hand composite a left-hand composite was
// paired with, keyed by the left side's identity and type.
type visit struct {
	addr uintptr
	typ  reflect.Type
}

// Equal reports whether a and b are structurally indistinguishable.
//
// Comparison is by value for primitives (with NaN equal to NaN), by index
// for slices and arrays, by instant for time.Time, by source text for
// *regexp.Regexp, unordered for maps (keys compared structurally when a
// direct lookup misses), and by exported fields for structs. Functions
// and channels compare by identity only. Cyclic values terminate: each
// top-level call threads a fresh visited table pairing left composites
// with the right composite they were first compared against.
//
// Equal never panics; values it cannot interpret beyond identity compare
// unequal.
func Equal(a, b any) bool {
	return equalValue(reflect.ValueOf(a), reflect.ValueOf(b), make(map[visit]uintptr))
}

func equalValue(a, b reflect.Value, visited map[visit]uintptr) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	if a.Type() == timeType {
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return floatEqual(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := a.Complex(), b.Complex()
		return floatEqual(real(ca), real(cb)) && floatEqual(imag(ca), imag(cb))
	case reflect.String:
		return a.String() == b.String()
	case reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Func:
		// Functions are opaque: equal only when identical or both nil.
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return a.Pointer() == b.Pointer()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return equalValue(a.Elem(), b.Elem(), visited)
	case reflect.Pointer:
		return equalPointer(a, b, visited)
	case reflect.Slice:
		return equalSlice(a, b, visited)
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !equalValue(a.Index(i), b.Index(i), visited) {
				return false
			}
		}
		return true
	case reflect.Map:
		return equalMap(a, b, visited)
	case reflect.Struct:
		return equalStruct(a, b, visited)
	}
	return false
}

func equalPointer(a, b reflect.Value, visited map[visit]uintptr) bool {
	if a.Pointer() == b.Pointer() {
		return true
	}
	if a.IsNil() || b.IsNil() {
		return false
	}
	if a.Type() == regexpType {
		// Source text carries the flag set for Go patterns.
		return a.Interface().(*regexp.Regexp).String() == b.Interface().(*regexp.Regexp).String()
	}
	if equal, seen := checkVisited(a, b, visited); seen {
		return equal
	}
	return equalValue(a.Elem(), b.Elem(), visited)
}

func equalSlice(a, b reflect.Value, visited map[visit]uintptr) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Len() == 0 {
		return true
	}
	if a.Pointer() == b.Pointer() {
		return true
	}
	if equal, seen := checkVisited(a, b, visited); seen {
		return equal
	}
	for i := 0; i < a.Len(); i++ {
		if !equalValue(a.Index(i), b.Index(i), visited) {
			return false
		}
	}
	return true
}

func equalMap(a, b reflect.Value, visited map[visit]uintptr) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Len() == 0 {
		return true
	}
	if a.Pointer() == b.Pointer() {
		return true
	}
	if equal, seen := checkVisited(a, b, visited); seen {
		return equal
	}
	// Entry matching is bijective: each entry of b is consumed by at most
	// one entry of a. Candidate comparisons run on a copy of the visited
	// table so a failed candidate cannot taint later ones.
	bKeys := b.MapKeys()
	matched := make([]bool, len(bKeys))
entries:
	for _, k := range a.MapKeys() {
		av := a.MapIndex(k)
		if bv := b.MapIndex(k); bv.IsValid() && equalValue(av, bv, scratch(visited)) {
			if i := identicalKey(bKeys, matched, k); i >= 0 {
				matched[i] = true
				continue entries
			}
		}
		// No unconsumed direct hit: scan for a structurally equal key.
		// Quadratic in the worst case, which is fine for the small maps
		// state trees carry.
		for i, bk := range bKeys {
			if matched[i] {
				continue
			}
			if equalValue(k, bk, scratch(visited)) && equalValue(av, b.MapIndex(bk), scratch(visited)) {
				matched[i] = true
				continue entries
			}
		}
		return false
	}
	return true
}

// identicalKey finds the unconsumed entry of bKeys holding exactly k
// under the map's own key equality. Map keys are always comparable.
func identicalKey(bKeys []reflect.Value, matched []bool, k reflect.Value) int {
	for i, bk := range bKeys {
		if !matched[i] && bk.Interface() == k.Interface() {
			return i
		}
	}
	return -1
}

// scratch copies the visited table. Pairings recorded so far still break
// cycles inside the candidate comparison; pairings the candidate adds
// stay local to it.
func scratch(visited map[visit]uintptr) map[visit]uintptr {
	copied := make(map[visit]uintptr, len(visited))
	for k, v := range visited {
		copied[k] = v
	}
	return copied
}

func equalStruct(a, b reflect.Value, visited map[visit]uintptr) bool {
	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		// Unexported fields are invisible to comparison.
		if !t.Field(i).IsExported() {
			continue
		}
		if !equalValue(a.Field(i), b.Field(i), visited) {
			return false
		}
	}
	return true
}

// checkVisited breaks cycles. A left composite already paired with this
// right composite short-circuits to equal; one paired with a different
// partner is conservatively unequal. First sightings record the pairing.
func checkVisited(a, b reflect.Value, visited map[visit]uintptr) (equal, seen bool) {
	key := visit{addr: a.Pointer(), typ: a.Type()}
	if partner, ok := visited[key]; ok {
		return partner == b.Pointer(), true
	}
	visited[key] = b.Pointer()
	return false, false
}

func floatEqual(x, y float64) bool {
	if x == y {
		return true
	}
	return math.IsNaN(x) && math.IsNaN(y)
}
