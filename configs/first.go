package configs

import (
	"errors"
)

// First decodes the value at path from the first file defining it.
// A missing value yields the zero value; any other error panics.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(err)
	}
	return value
}

// Lookup is First that also reports whether the value was found.
func Lookup[T any](loader Loader, path string) (T, bool, error) {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value, false, nil
		}
		return value, false, err
	}
	return value, true, nil
}
