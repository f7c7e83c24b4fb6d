package redirects

import "fmt"

// LoadError is returned when the static redirect list cannot be loaded.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load redirects from %q: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ProviderError is returned by providers when a lookup fails.
type ProviderError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("redirect provider %s %s failed: %v", e.Backend, e.Operation, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
