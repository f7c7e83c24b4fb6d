package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Provider that has no value for a name.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret returns the value of name, or an error wrapping ErrNotFound
	// when the backend does not hold it.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs ("env", "file").
	Name() string
}
