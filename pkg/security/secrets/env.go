package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. The secret
// "redis-password" with prefix "NOTFOUND_SECRET_" is read from
// NOTFOUND_SECRET_REDIS_PASSWORD.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret returns the variable named after name. Empty variables count as
// unset.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w: %s (env var %s)", ErrNotFound, name, envVar)
	}
	return value, nil
}

// EnvVar returns the environment variable consulted for name.
func (p *EnvProvider) EnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return p.Prefix + strings.ToUpper(r.Replace(name))
}

// Name returns "env".
func (p *EnvProvider) Name() string {
	return "env"
}
