package store

// schemaVersionV1 is the first ledger layout.
const schemaVersionV1 = 1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS stage_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	obs_id      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	output      TEXT,
	message     TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_stage_entries_run ON stage_entries(run_id);
CREATE INDEX IF NOT EXISTS idx_stage_entries_obs ON stage_entries(obs_id, stage);
`
