package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"arfa/internal/logging"
)

func main() {
	var (
		dbURL = flag.String("db", os.Getenv("ARFA_DATABASE_URL"), "Postgres connection string")
		dir   = flag.String("dir", "migrations", "Migrations directory")
	)
	flag.Parse()

	log := logging.New(nil, "info").Sub("migrate")
	if *dbURL == "" {
		log.Fatal().Msg("missing -db or ARFA_DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `
		create table if not exists schema_migrations (
			filename text primary key,
			applied_at timestamptz not null default now()
		)
	`); err != nil {
		log.Fatal().Err(err).Msg("ensure migrations table")
	}

	files, err := listSQLFiles(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("list migrations")
	}

	applied := 0
	for _, path := range files {
		done, err := applyMigration(ctx, conn, path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("apply migration")
		}
		if done {
			log.Info().Str("file", filepath.Base(path)).Msg("applied")
			applied++
		}
	}
	log.Info().Int("applied", applied).Int("total", len(files)).Msg("migrations up to date")
}

func listSQLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// applyMigration runs one file inside a transaction and records it. Returns
// false when the file was applied previously.
func applyMigration(ctx context.Context, conn *pgx.Conn, path string) (bool, error) {
	base := filepath.Base(path)

	var exists bool
	if err := conn.QueryRow(ctx,
		`select exists(select 1 from schema_migrations where filename = $1)`, base).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	sqlText := strings.TrimSpace(string(b))
	if sqlText == "" {
		return false, fmt.Errorf("empty migration")
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sqlText); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `insert into schema_migrations (filename) values ($1)`, base); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
