// Package secrets resolves ${secret:name} references found in configuration
// values, so credentials such as the Redis password stay out of the
// configuration file.
//
// Providers are consulted in order:
//
//	m := secrets.NewManager(logger,
//		secrets.NewEnvProvider("NOTFOUND_SECRET_"),
//		fileProvider,
//	)
//	password, err := m.Resolve(ctx, "${secret:redis-password}")
//
// The environment provider maps "redis-password" to
// NOTFOUND_SECRET_REDIS_PASSWORD. The file provider reads a file named after
// the secret from a directory, as mounted by container orchestrators.
package secrets
