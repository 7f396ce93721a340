package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/biblioteka/backend/internal/db"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const trackingTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version VARCHAR(255) PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// MinServerVersion is the oldest PostgreSQL the schema runs on, in
// server_version_num form. UNIQUE NULLS NOT DISTINCT arrived in 15.
const MinServerVersion = 150000

// CheckServerVersion validates a server_version_num value
func CheckServerVersion(versionNum string) error {
	n, err := strconv.Atoi(strings.TrimSpace(versionNum))
	if err != nil {
		return fmt.Errorf("unexpected server_version_num %q: %w", versionNum, err)
	}
	if n < MinServerVersion {
		return fmt.Errorf("PostgreSQL %d.%d is not supported, need %d or newer", n/10000, n%10000, MinServerVersion/10000)
	}
	return nil
}

// Migrator applies *.sql files in name order and records each version in
// schema_migrations so that reruns are no-ops.
type Migrator struct {
	db     *db.PostgresDB
	source fs.FS
}

// NewMigrator creates a migrator reading SQL files from source
func NewMigrator(database *db.PostgresDB, source fs.FS) *Migrator {
	return &Migrator{db: database, source: source}
}

// Pending lists migration files in apply order
func Pending(source fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Version extracts "001" from "001_init.sql"
func Version(filename string) string {
	base := path.Base(filename)
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, ".sql")
}

// Up applies every migration that has not been recorded yet
func (m *Migrator) Up(ctx context.Context) (int, error) {
	var versionNum string
	if err := m.db.Pool.QueryRow(ctx, "SHOW server_version_num").Scan(&versionNum); err != nil {
		return 0, fmt.Errorf("failed to read server version: %w", err)
	}
	if err := CheckServerVersion(versionNum); err != nil {
		return 0, err
	}

	if _, err := m.db.Pool.Exec(ctx, trackingTableSQL); err != nil {
		return 0, fmt.Errorf("failed to create migration tracking table: %w", err)
	}

	files, err := Pending(m.source)
	if err != nil {
		return 0, err
	}

	log := logger.Component("migrator")
	applied := 0
	for _, file := range files {
		ok, err := m.apply(ctx, file)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
			log.Info().Str("file", file).Msg("Migration applied")
		} else {
			log.Debug().Str("file", file).Msg("Migration already applied, skipping")
		}
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, file string) (bool, error) {
	version := Version(file)
	content, err := fs.ReadFile(m.source, file)
	if err != nil {
		return false, fmt.Errorf("failed to read migration file %s: %w", file, err)
	}

	applied := false
	err = m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		applied = true
		return nil
	})
	return applied, err
}
