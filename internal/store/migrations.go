package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions, messages and tool calls",
		SQL: `
			CREATE TABLE sessions (
				id                  TEXT PRIMARY KEY,
				email               TEXT NOT NULL,
				first_name          TEXT NOT NULL DEFAULT '',
				last_name           TEXT NOT NULL DEFAULT '',
				shopify_customer_id TEXT NOT NULL DEFAULT '',
				status              TEXT NOT NULL,
				order_numbers       TEXT NOT NULL DEFAULT '[]',
				intent_history      TEXT NOT NULL DEFAULT '[]',
				escalated           INTEGER NOT NULL DEFAULT 0,
				escalation_reason   TEXT NOT NULL DEFAULT '',
				escalation_summary  TEXT,
				current_handler     TEXT NOT NULL DEFAULT '',
				created_at          TEXT NOT NULL,
				updated_at          TEXT NOT NULL
			);

			CREATE INDEX idx_sessions_email ON sessions (email);

			CREATE TABLE messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				role        TEXT NOT NULL,
				content     TEXT NOT NULL,
				timestamp   TEXT NOT NULL
			);

			CREATE INDEX idx_messages_session ON messages (session_id, id);

			CREATE TABLE tool_calls (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				handle      TEXT NOT NULL,
				input       TEXT NOT NULL DEFAULT '',
				output      TEXT NOT NULL DEFAULT '',
				success     INTEGER NOT NULL,
				error       TEXT NOT NULL DEFAULT '',
				timestamp   TEXT NOT NULL
			);

			CREATE INDEX idx_tool_calls_session ON tool_calls (session_id, id);
		`,
	},
	{
		Version: 2,
		Name:    "create dynamic rules",
		SQL: `
			CREATE TABLE rules (
				id          TEXT PRIMARY KEY,
				prompt      TEXT NOT NULL,
				keywords    TEXT NOT NULL,
				action      TEXT NOT NULL,
				created_at  TEXT NOT NULL,
				active      INTEGER NOT NULL DEFAULT 1
			);
		`,
	},
	{
		Version: 3,
		Name:    "create trace events",
		SQL: `
			CREATE TABLE trace_events (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL,
				type        TEXT NOT NULL,
				timestamp   TEXT NOT NULL,
				data        TEXT
			);

			CREATE INDEX idx_trace_session ON trace_events (session_id, id);
		`,
	},
}
