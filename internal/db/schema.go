package db

// SchemaSQL is the complete schema of the run ledger.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Repository
// tests load it through GetSchemaSQL() instead of declaring their own tables.
// When adding columns, append a migration in migrations.go and update this
// constant to match.
const SchemaSQL = `
-- Reconciliation runs (one row per written assignment)
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	logfile TEXT NOT NULL,
	depth_top REAL NOT NULL,
	depth_bot REAL NOT NULL,
	nlogged INTEGER NOT NULL CHECK(nlogged > 0),
	first_vial INTEGER NOT NULL CHECK(first_vial > 0),
	last_vial INTEGER NOT NULL CHECK(last_vial >= first_vial),
	nfilled INTEGER NOT NULL,
	merge_count INTEGER NOT NULL DEFAULT 0,
	policy TEXT NOT NULL CHECK(policy IN ('prompt', 'abort')) DEFAULT 'prompt',
	output_path TEXT NOT NULL,
	metadata_path TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_logfile ON runs(logfile);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

-- Vials declared missed during a run
CREATE TABLE IF NOT EXISTS run_missed_vials (
	run_id TEXT NOT NULL,
	vial INTEGER NOT NULL,
	PRIMARY KEY (run_id, vial),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
