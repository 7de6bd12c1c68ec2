package store

// schema is applied once when a store is opened. Every statement is
// idempotent (IF NOT EXISTS) so opening an existing database file is
// cheap and safe.
const schema = `
CREATE TABLE IF NOT EXISTS contexts (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	cwd      TEXT NOT NULL,
	env_vars TEXT NOT NULL -- JSON object
);

CREATE TABLE IF NOT EXISTS test_programs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	root          TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	interface     TEXT NOT NULL,
	suite         TEXT NOT NULL,
	metadata      TEXT NOT NULL, -- JSON object
	UNIQUE(relative_path)
);

CREATE TABLE IF NOT EXISTS test_cases (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	program_id INTEGER NOT NULL REFERENCES test_programs(id),
	name       TEXT NOT NULL,
	metadata   TEXT NOT NULL, -- JSON object
	UNIQUE(program_id, name)
);

CREATE TABLE IF NOT EXISTS results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	test_case_id INTEGER NOT NULL REFERENCES test_cases(id),
	type         TEXT NOT NULL,
	reason       TEXT NOT NULL,
	start_us     INTEGER NOT NULL,
	end_us       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_case_files (
	test_case_id INTEGER NOT NULL REFERENCES test_cases(id),
	name         TEXT NOT NULL,
	blob         BLOB NOT NULL,
	PRIMARY KEY (test_case_id, name)
);

CREATE INDEX IF NOT EXISTS idx_test_cases_program ON test_cases(program_id);
CREATE INDEX IF NOT EXISTS idx_results_case ON results(test_case_id);
`

// StdoutArtifact and StderrArtifact are the fixed artifact names the
// scheduler writes after every result.
const (
	StdoutArtifact = "__STDOUT__"
	StderrArtifact = "__STDERR__"
)
