package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectDB(connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return dbpool, nil
}

type PostgresDBManager struct {
	dbpool *pgxpool.Pool
	ctx    context.Context
}

func NewPostgresDBManager(ctx context.Context, pool *pgxpool.Pool) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool, ctx: ctx}
}

func (m *PostgresDBManager) EnsureLedgerTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS processed_files (
		directory TEXT NOT NULL,
		filename TEXT NOT NULL,
		checksum VARCHAR(64),
		processed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (directory, filename)
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating processed_files table: %w", err)
	}

	return nil
}

func (m *PostgresDBManager) IsProcessed(directory, filename string) (bool, error) {
	query := `
	SELECT 1
	FROM processed_files
	WHERE directory = $1 AND filename = $2
	LIMIT 1;`

	var one int
	err := m.dbpool.QueryRow(m.ctx, query, directory, filename).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error checking processed_files for %s/%s: %w", directory, filename, err)
	}

	return true, nil
}

func (m *PostgresDBManager) MarkProcessed(directory, filename, checksum string) error {
	query := `
	INSERT INTO processed_files (directory, filename, checksum)
	VALUES ($1, $2, $3)
	ON CONFLICT (directory, filename) DO NOTHING;`

	_, err := m.dbpool.Exec(m.ctx, query, directory, filename, checksum)
	if err != nil {
		return fmt.Errorf("error marking %s/%s as processed: %w", directory, filename, err)
	}

	return nil
}

// BulkUpsert loads rows through a session temp staging table with CopyFrom,
// then merges into the destination with INSERT ... ON CONFLICT keyed by the
// category's natural key. The whole operation runs in one transaction.
func (m *PostgresDBManager) BulkUpsert(table string, columns, conflictColumns []string, rows [][]any) error {
	if len(rows) == 0 {
		log.Printf("WARN: empty batch for table %s, skipping bulk upsert", table)
		return nil
	}

	tx, err := m.dbpool.Begin(m.ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(m.ctx)

	stagingTable := fmt.Sprintf("%s_staging", table)
	createQuery := fmt.Sprintf(
		`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP;`,
		pgx.Identifier{stagingTable}.Sanitize(), pgx.Identifier{table}.Sanitize())

	if _, err := tx.Exec(m.ctx, createQuery); err != nil {
		return fmt.Errorf("error creating staging table for %s: %w", table, err)
	}

	copySource := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return rows[i], nil
	})

	if _, err := tx.CopyFrom(m.ctx, pgx.Identifier{stagingTable}, columns, copySource); err != nil {
		return fmt.Errorf("unable to copy rows to staging table for %s: %w", table, err)
	}

	columnList := sanitizeList(columns)
	mergeQuery := fmt.Sprintf(`
	INSERT INTO %s (%s)
	SELECT %s FROM %s
	%s;`,
		pgx.Identifier{table}.Sanitize(), columnList,
		columnList, pgx.Identifier{stagingTable}.Sanitize(),
		conflictClause(columns, conflictColumns))

	if _, err := tx.Exec(m.ctx, mergeQuery); err != nil {
		return fmt.Errorf("error upserting staging rows into %s: %w", table, err)
	}

	return tx.Commit(m.ctx)
}

func (m *PostgresDBManager) SelectCodes(table string) (map[string]bool, error) {
	query := fmt.Sprintf(`SELECT codigo FROM %s;`, pgx.Identifier{table}.Sanitize())

	rows, err := m.dbpool.Query(m.ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting codes from %s: %w", table, err)
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("error scanning code from %s: %w", table, err)
		}
		codes[code] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating codes from %s: %w", table, err)
	}

	return codes, nil
}

func (m *PostgresDBManager) CountRows(table string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s;`, pgx.Identifier{table}.Sanitize())

	var count int64
	if err := m.dbpool.QueryRow(m.ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting rows in %s: %w", table, err)
	}

	return count, nil
}

func sanitizeList(columns []string) string {
	sanitized := make([]string, len(columns))
	for i, col := range columns {
		sanitized[i] = pgx.Identifier{col}.Sanitize()
	}
	return strings.Join(sanitized, ", ")
}

// conflictClause builds the ON CONFLICT action: update every non-key
// column, or do nothing when the key covers the whole row.
func conflictClause(columns, conflictColumns []string) string {
	if len(conflictColumns) == 0 {
		return ""
	}

	keys := make(map[string]bool, len(conflictColumns))
	for _, col := range conflictColumns {
		keys[col] = true
	}

	var updates []string
	for _, col := range columns {
		if !keys[col] {
			sanitized := pgx.Identifier{col}.Sanitize()
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", sanitized, sanitized))
		}
	}

	target := sanitizeList(conflictColumns)
	if len(updates) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", target)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(updates, ", "))
}
