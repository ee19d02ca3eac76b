package schema

import "fmt"

// UnknownTypeError indicates neither registry tier resolved the TypeName.
type UnknownTypeError struct {
	TypeName string
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %s", e.TypeName)
}

// DuplicateIncompatibleError indicates a TypeName is already registered
// with a non-identical descriptor.
type DuplicateIncompatibleError struct {
	TypeName string
}

func (e DuplicateIncompatibleError) Error() string {
	return fmt.Sprintf("type %s already registered with an incompatible descriptor", e.TypeName)
}
