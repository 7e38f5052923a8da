package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var migrationFilePattern = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.sql$`)

// ErrMigrationChecksum is returned when an applied migration no longer
// matches the embedded file it was applied from.
var ErrMigrationChecksum = errors.New("sqlite: applied migration checksum mismatch")

type migration struct {
	Version     string
	Description string
	SQL         string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version         string
	AppliedAt       string
	Checksum        string
	ExecutionTimeMs int64
}

func loadMigrations(files fs.FS) ([]migration, error) {
	names, err := fs.Glob(files, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		base := path.Base(name)
		match := migrationFilePattern.FindStringSubmatch(base)
		if match == nil {
			return nil, fmt.Errorf("migration file %s does not follow NNN_description.sql", base)
		}
		if prev, ok := seen[match[1]]; ok {
			return nil, fmt.Errorf("migration version %s used by both %s and %s", match[1], prev, base)
		}
		seen[match[1]] = base

		data, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", base, err)
		}
		migrations = append(migrations, migration{
			Version:     match[1],
			Description: strings.ReplaceAll(match[2], "_", " "),
			SQL:         string(data),
			Checksum:    checksumOf(data),
		})
	}
	return migrations, nil
}

// migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction, and verifies the
// checksums of those already applied.
func migrate(ctx context.Context, db *sql.DB, now func() time.Time) error {
	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL,
			execution_time_ms INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	recorded := make(map[string]string, len(applied))
	for _, row := range applied {
		recorded[row.Version] = row.Checksum
	}

	for _, m := range migrations {
		if checksum, ok := recorded[m.Version]; ok {
			if checksum != m.Checksum {
				return fmt.Errorf("%w: version %s", ErrMigrationChecksum, m.Version)
			}
			continue
		}
		if err := applyMigration(ctx, db, m, now); err != nil {
			return fmt.Errorf("apply migration %s (%s): %w", m.Version, m.Description, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration, now func() time.Time) (err error) {
	started := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		m.Version, now().UTC().Format(time.RFC3339), m.Checksum, time.Since(started).Milliseconds(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func appliedMigrations(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var row AppliedMigration
		if err := rows.Scan(&row.Version, &row.AppliedAt, &row.Checksum, &row.ExecutionTimeMs); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied = append(applied, row)
	}
	return applied, rows.Err()
}

// splitStatements drops comment lines and splits on semicolons. Migration
// files must not contain semicolons inside string literals.
func splitStatements(script string) []string {
	var body strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}

	var statements []string
	for _, stmt := range strings.Split(body.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// Migrations lists the migrations recorded in the database, oldest first.
func (s *Store) Migrations(ctx context.Context) ([]AppliedMigration, error) {
	return appliedMigrations(ctx, s.db)
}
