//go:build debug_pmem

package memutils

import cerrors "github.com/cockroachdb/errors"

// DebugEnabled is true when the module is built with the debug_pmem build tag
const DebugEnabled = true

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_pmem build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(cerrors.WithAssertionFailure(err))
	}
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_pmem build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	err := CheckPow2[T](value, name)
	if err != nil {
		panic(cerrors.WithAssertionFailure(err))
	}
}
