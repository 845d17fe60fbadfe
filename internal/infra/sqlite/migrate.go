package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is a single numbered schema change.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Migrations returns the embedded migrations sorted by version.
func Migrations() ([]Migration, error) {
	return readMigrations(migrationFiles, "migrations")
}

func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every pending embedded migration and returns how many ran.
// A changed checksum on an applied migration is logged, not re-run.
func Migrate(ctx context.Context, db *sql.DB, appliedBy string, log zerolog.Logger) (int, error) {
	migrations, err := Migrations()
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	return applyMigrations(ctx, db, migrations, appliedBy, log)
}

func applyMigrations(ctx context.Context, db *sql.DB, migrations []Migration, appliedBy string, log zerolog.Logger) (int, error) {
	if err := ensureSchemaMigrationsTable(ctx, db); err != nil {
		return 0, fmt.Errorf("Migrate: ensuring schema_migrations: %w", err)
	}

	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}

	count := 0
	for _, m := range migrations {
		if am, ok := byVersion[m.Version]; ok {
			if am.Checksum != m.Checksum {
				log.Warn().Str("migration", m.Filename).Msg("Applied migration changed since it ran")
			}
			log.Debug().Str("migration", m.Filename).Msg("Skipping applied migration")
			continue
		}

		if err := runMigration(ctx, db, m, appliedBy); err != nil {
			return count, fmt.Errorf("Migrate: applying %s: %w", m.Filename, err)
		}
		log.Info().Str("migration", m.Filename).Msg("Applied migration")
		count++
	}
	return count, nil
}

func ensureSchemaMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			checksum   TEXT,
			applied_by TEXT
		)`)
	return err
}

// AppliedMigrations lists recorded migrations in version order.
func AppliedMigrations(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT version, name, applied_at, checksum, applied_by
		FROM schema_migrations
		ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			am        AppliedMigration
			appliedAt string
			checksum  sql.NullString
			by        sql.NullString
		)
		if err := rows.Scan(&am.Version, &am.Name, &appliedAt, &checksum, &by); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		am.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
		am.Checksum = checksum.String
		am.AppliedBy = by.String
		applied = append(applied, am)
	}
	return applied, rows.Err()
}

// runMigration executes a migration and records it in one transaction.
func runMigration(ctx context.Context, db *sql.DB, m Migration, appliedBy string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("executing: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, name, applied_at, checksum, applied_by)
		VALUES (?, ?, ?, ?, ?)`,
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339), m.Checksum, appliedBy,
	); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	return tx.Commit()
}
