package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/store"
)

type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer Store owns the connection.
func (t *txStore) Close() error                 { return nil }
func (t *txStore) Ping(_ context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(_ context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }
func (t *txStore) WithTx(_ context.Context, _ func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users { return &usersRepo{q: t.tx, now: t.now} }
func (t *txStore) Roles() store.Roles { return &rolesRepo{q: t.tx} }

// ApplyMigrations runs against the outer Store before any Tx is opened.
func (t *txStore) ApplyMigrations() error { return nil }
