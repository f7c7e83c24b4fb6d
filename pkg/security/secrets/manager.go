package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

// secretRefRegex matches ${secret:name} references.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager looks secrets up in its providers in order.
type Manager struct {
	providers []Provider
	logger    *slog.Logger
}

// NewManager creates a manager. The first provider holding a secret wins.
func NewManager(logger *slog.Logger, providers ...Provider) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		providers: providers,
		logger:    logger.With("component", "secrets"),
	}
}

// GetSecret returns the value of name from the first provider that has it.
// A provider failing for any reason other than ErrNotFound stops the search.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			m.logger.Debug("secret resolved", "provider", p.Name(), "name", redactSecretName(name))
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("provider %s: %w", p.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// HasReferences reports whether s contains a ${secret:name} reference.
func HasReferences(s string) bool {
	return secretRefRegex.MatchString(s)
}

// Resolve replaces every ${secret:name} reference in input. On failure the
// input is returned unchanged together with all lookup errors.
func (m *Manager) Resolve(ctx context.Context, input string) (string, error) {
	var errs []error
	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return input, errors.Join(errs...)
	}
	return output, nil
}

// redactSecretName keeps secret names recognizable in logs without printing
// them in full.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
