package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/store"
)

// Open returns the document store selected by cfg.Store.
func Open(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Store == config.FirestoreStore {
		return OpenFirestore(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
	}

	db, err := OpenSQLite(cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db), nil
}

// OpenSQLite opens the SQLite file at path and migrates it to the latest schema.
func OpenSQLite(path string) (db *sql.DB, err error) {
	dsn := "file:" + path + "?" + url.Values{
		"_foreign_keys": {"on"},
		"_busy_timeout": {"5000"},
		"_txlock":       {"immediate"},
	}.Encode()

	db, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return
	}

	return
}
