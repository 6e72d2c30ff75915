package concache

import "reflect"

// isNil reports whether v is an absent-equivalent value: a nil interface or a
// nil pointer, map, channel or func. Nil slices are ordinary empty values.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// defaultEqual compares with == when the dynamic type supports it and falls
// back to reflect.DeepEqual otherwise (slices, maps, structs holding them).
func defaultEqual[V any](a, b V) (eq bool) {
	x, y := any(a), any(b)
	t := reflect.TypeOf(x)
	if t == nil || !t.Comparable() {
		return reflect.DeepEqual(x, y)
	}
	// comparable types can still panic at runtime, e.g. an interface field
	// holding a slice
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(x, y)
		}
	}()
	return x == y
}
