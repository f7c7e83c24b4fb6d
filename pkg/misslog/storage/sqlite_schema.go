package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the miss log tables. requested_at holds Unix nanoseconds so
// ordering and range filters stay numeric.
const Schema = `
CREATE TABLE IF NOT EXISTS misses (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    referrer TEXT NOT NULL DEFAULT '',
    requested_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_misses_requested_at ON misses(requested_at);
CREATE INDEX IF NOT EXISTS idx_misses_path ON misses(path);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
