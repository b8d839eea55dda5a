package enums

import (
	"fmt"
	"slices"
)

// parse matches value exactly against the allowed set; label names the enum
// in the error.
func parse[T ~string](label, value string, allowed []T) (T, error) {
	if v := T(value); slices.Contains(allowed, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", label, value)
}
