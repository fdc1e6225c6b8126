package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"go.uber.org/zap"
)

// DB bundles the two SQLite pools. Users and revoked tokens live in the auth
// database; boards, notes and tags in the main one. There is no foreign key
// between the two files, so owner ids are checked in queries.
type DB struct {
	Main *sqlx.DB
	Auth *sqlx.DB
	log  *zap.Logger
}

// Open connects to both databases and applies their schemas.
func Open(mainPath, authPath string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &DB{log: logger}

	var err error
	db.Auth, err = connect(authPath+"?_loc=auto&_busy_timeout=5000", authSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth database: %w", err)
	}
	logger.Info("auth database ready", zap.String("path", authPath))

	db.Main, err = connect(mainPath+"?_foreign_keys=on&_loc=auto&_busy_timeout=5000", mainSchema)
	if err != nil {
		_ = db.Auth.Close()
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}
	logger.Info("main database ready", zap.String("path", mainPath))

	return db, nil
}

func connect(dsn, schema string) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY between pool members.
	conn.SetMaxOpenConns(1)
	if _, err = conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return conn, nil
}

// Close releases both pools.
func (db *DB) Close() error {
	return errors.Join(db.Main.Close(), db.Auth.Close())
}

// Ping checks both databases are reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Auth.PingContext(ctx); err != nil {
		return fmt.Errorf("auth database: %w", err)
	}
	if err := db.Main.PingContext(ctx); err != nil {
		return fmt.Errorf("main database: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction on the main database and commits when fn succeeds.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.Main.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
