package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mbolis/quick-form/store"
	"github.com/pkg/errors"
)

var _ store.Store = (*SQLStore)(nil)

// SQLStore keeps every document as a JSON row of the document table.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) Get(ctx context.Context, path string, dst any) error {
	return get(ctx, s.db, path, dst)
}

func (s *SQLStore) Set(ctx context.Context, path string, src any) error {
	return set(ctx, s.db, path, src)
}

func (s *SQLStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var doc map[string]any
		if err := tx.Get(path, &doc); err != nil {
			return err
		}
		if doc == nil {
			doc = map[string]any{}
		}
		for k, v := range fields {
			doc[k] = v
		}
		return tx.Set(path, doc)
	})
}

func (s *SQLStore) Delete(ctx context.Context, path string) error {
	return del(ctx, s.db, path)
}

func (s *SQLStore) List(ctx context.Context, collection string) ([]store.Snapshot, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, errors.Wrapf(err, "list %q", collection)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, id, data
		FROM document
		WHERE parent = ?
		ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "list %q", collection)
	}
	defer rows.Close()

	snapshots := []store.Snapshot{}
	for rows.Next() {
		var snap store.Snapshot
		var data string
		if err := rows.Scan(&snap.Path, &snap.ID, &data); err != nil {
			return nil, errors.Wrapf(err, "list %q: scan", collection)
		}
		snap.Data = []byte(data)
		snapshots = append(snapshots, snap)
	}
	return snapshots, errors.Wrapf(rows.Err(), "list %q", collection)
}

func (s *SQLStore) RunTransaction(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	err = fn(ctx, &sqlTx{ctx, tx})
	if err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTx) Get(path string, dst any) error {
	return get(t.ctx, t.tx, path, dst)
}

func (t *sqlTx) Set(path string, src any) error {
	return set(t.ctx, t.tx, path, src)
}

func (t *sqlTx) Delete(path string) error {
	return del(t.ctx, t.tx, path)
}

func get(ctx context.Context, q queryer, path string, dst any) error {
	if _, _, err := store.SplitDoc(path); err != nil {
		return errors.Wrapf(err, "get %q", path)
	}

	var data string
	err := q.QueryRowContext(ctx, `
		SELECT data FROM document WHERE path = ?`,
		path,
	).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errors.Wrapf(store.ErrNotFound, "get %q", path)
	case err != nil:
		return errors.Wrapf(err, "get %q", path)
	}

	return errors.Wrapf(json.Unmarshal([]byte(data), dst), "get %q: decode", path)
}

func set(ctx context.Context, q queryer, path string, src any) error {
	parent, id, err := store.SplitDoc(path)
	if err != nil {
		return errors.Wrapf(err, "set %q", path)
	}

	data, err := json.Marshal(src)
	if err != nil {
		return errors.Wrapf(err, "set %q: encode", path)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO document (path, parent, id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			data = excluded.data,
			version = version+1,
			updated_at = excluded.updated_at`,
		path,
		parent,
		id,
		string(data),
		time.Now().UTC(),
	)
	return errors.Wrapf(err, "set %q", path)
}

func del(ctx context.Context, q queryer, path string) error {
	if _, _, err := store.SplitDoc(path); err != nil {
		return errors.Wrapf(err, "delete %q", path)
	}

	_, err := q.ExecContext(ctx, `
		DELETE FROM document WHERE path = ?`,
		path,
	)
	return errors.Wrapf(err, "delete %q", path)
}
