package archive

// Ended polls are archived as one row per poll with the tally and the
// response list stored as JSON. The archive is write-only record keeping:
// nothing is read back at startup, so live session state never survives a
// restart.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS poll_archive (
	poll_id     TEXT PRIMARY KEY,
	question    TEXT NOT NULL,
	options     TEXT NOT NULL,
	votes       TEXT NOT NULL,
	total_votes INTEGER NOT NULL,
	responses   TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	archived_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_archive_created ON poll_archive(created_at);
`
