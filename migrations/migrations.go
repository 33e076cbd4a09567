// Package migrations embeds the schema so the migration tool and the
// integration tests apply exactly the same files.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Up applies every *.up.sql file in name order and returns the applied names.
func Up(ctx context.Context, db *sql.DB) ([]string, error) {
	return run(ctx, db, "up")
}

// Down applies every *.down.sql file in reverse name order.
func Down(ctx context.Context, db *sql.DB) ([]string, error) {
	return run(ctx, db, "down")
}

func run(ctx context.Context, db *sql.DB, direction string) ([]string, error) {
	names, err := list(direction)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		content, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return nil, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return names, nil
}

func list(direction string) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	if direction == "down" {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	return names, nil
}
