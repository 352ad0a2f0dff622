package journal

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fills (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_time ON decisions(time);
CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
`
