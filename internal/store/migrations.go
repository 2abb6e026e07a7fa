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
		Name:    "create gateway session",
		SQL: `
			CREATE TABLE gateway_session (
				id                   INTEGER PRIMARY KEY CHECK (id = 1),
				session_id           TEXT,
				last_event_sequence  INTEGER,
				updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
			);

			INSERT INTO gateway_session (id, session_id, last_event_sequence)
			VALUES (1, NULL, NULL);
		`,
	},
}
