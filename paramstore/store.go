// Package paramstore abstracts the external store that holds operator-managed
// configuration parameters, addressed by path. Values are UTF-8 strings;
// backends holding encrypted values decrypt before returning.
package paramstore

import (
	"context"
	"errors"
)

// Store reads a single parameter by path.
type Store interface {
	GetParameter(ctx context.Context, path string) (string, error)
}

// ErrNotFound is returned when no parameter exists at the requested path.
var ErrNotFound = errors.New("paramstore: parameter not found")
