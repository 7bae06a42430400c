// Package nilcheck detects nil interface values, including typed nils
// hiding behind non-nil interface headers.
package nilcheck

import "reflect"

// Interface reports whether value is nil, either directly or as a typed nil
// carried inside a non-nil interface header.
func Interface(value any) bool {
	if value == nil {
		return true
	}

	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
