package sqlitedb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func OpenDb(dbFile string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %s", err)
	}
	// sqlite serializes writers, a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %s", err)
	}

	return db, nil
}
