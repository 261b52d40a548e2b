// Package migrate applies the embedded schema revisions. The applied
// version is tracked in SQLite's user_version pragma, so a fresh database
// starts at zero and each revision file bumps it.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// revision is one schema step. Filenames follow NNNN_label.sql; the
// numeric prefix is the revision number.
type revision struct {
	version int
	name    string
	ddl     string
}

func revisions() ([]revision, error) {
	entries, err := fs.ReadDir(schemaFS, "sql")
	if err != nil {
		return nil, err
	}
	revs := make([]revision, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("revision %s: missing version prefix", entry.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("revision %s: %w", entry.Name(), err)
		}
		ddl, err := schemaFS.ReadFile("sql/" + entry.Name())
		if err != nil {
			return nil, err
		}
		revs = append(revs, revision{version: version, name: entry.Name(), ddl: string(ddl)})
	}
	slices.SortFunc(revs, func(a, b revision) int { return a.version - b.version })
	return revs, nil
}

// Migrate brings the database up to the newest embedded revision. Each
// pending revision runs in its own transaction, so a failure leaves the
// schema at the last fully applied version.
func Migrate(conn *sql.DB) error {
	revs, err := revisions()
	if err != nil {
		return err
	}
	var current int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for _, rev := range revs {
		if rev.version <= current {
			continue
		}
		if err := apply(conn, rev); err != nil {
			return err
		}
		current = rev.version
	}
	return nil
}

func apply(conn *sql.DB, rev revision) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(rev.ddl); err != nil {
		return fmt.Errorf("revision %s: %w", rev.name, err)
	}
	// Pragmas do not take bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", rev.version)); err != nil {
		return fmt.Errorf("revision %s: stamp version: %w", rev.name, err)
	}
	return tx.Commit()
}
