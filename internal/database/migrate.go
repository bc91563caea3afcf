package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

const defaultVersionTable = "goose_db_version"

// Migrate applies every pending migration found in dir of fsys.
// Each dir keeps its own version table so both schemas can share one database.
// goose keeps its settings in package state, so calls must not run concurrently.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) error {
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	goose.SetTableName("goose_" + dir + "_version")
	defer goose.SetTableName(defaultVersionTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
