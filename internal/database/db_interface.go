package database

// DBManager is the storage surface the ingestion core depends on. The
// Postgres implementation owns its own transaction boundaries per call;
// the core never spans a transaction across calls.
type DBManager interface {
	// EnsureLedgerTable creates the processed_files table if missing. This
	// is the only DDL the core issues.
	EnsureLedgerTable() error

	// IsProcessed reports whether a (directory, filename) pair has already
	// been fully ingested.
	IsProcessed(directory, filename string) (bool, error)

	// MarkProcessed records a fully ingested file. Re-marking the same
	// pair is a no-op.
	MarkProcessed(directory, filename, checksum string) error

	// BulkUpsert inserts-or-replaces rows keyed by conflictColumns. It is
	// side-effect-free on retry with the same rows.
	BulkUpsert(table string, columns, conflictColumns []string, rows [][]any) error

	// SelectCodes returns the set of values in a table's codigo column.
	SelectCodes(table string) (map[string]bool, error)

	// CountRows returns the table's row count.
	CountRows(table string) (int64, error)
}
