package database

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"
	"github.com/mbolis/quick-form/store"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ store.Store = (*FirestoreStore)(nil)

// FirestoreStore stores documents in Cloud Firestore. Values are written in
// their JSON shape so both backends hold identical documents.
type FirestoreStore struct {
	client *firestore.Client
}

// OpenFirestore connects to the project's default database. Without a
// credentials file the application default credentials are used.
func OpenFirestore(ctx context.Context, project, credentials string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	client, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	return &FirestoreStore{client}, nil
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, error) {
	if _, _, err := store.SplitDoc(path); err != nil {
		return nil, err
	}
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, store.ErrInvalidPath
	}
	return ref, nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string, dst any) error {
	ref, err := s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "get %q", path)
	}
	snap, err := ref.Get(ctx)
	return decodeSnapshot(path, snap, err, dst)
}

func (s *FirestoreStore) Set(ctx context.Context, path string, src any) error {
	ref, err := s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "set %q", path)
	}
	data, err := store.ToMap(src)
	if err != nil {
		return errors.Wrapf(err, "set %q: encode", path)
	}
	_, err = ref.Set(ctx, data)
	return errors.Wrapf(err, "set %q", path)
}

func (s *FirestoreStore) Update(ctx context.Context, path string, fields map[string]any) error {
	ref, err := s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "update %q", path)
	}
	data, err := store.ToMap(fields)
	if err != nil {
		return errors.Wrapf(err, "update %q: encode", path)
	}

	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	_, err = ref.Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return errors.Wrapf(store.ErrNotFound, "update %q", path)
	}
	return errors.Wrapf(err, "update %q", path)
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "delete %q", path)
	}
	_, err = ref.Delete(ctx)
	return errors.Wrapf(err, "delete %q", path)
}

func (s *FirestoreStore) List(ctx context.Context, collection string) ([]store.Snapshot, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, errors.Wrapf(err, "list %q", collection)
	}
	col := s.client.Collection(collection)
	if col == nil {
		return nil, errors.Wrapf(store.ErrInvalidPath, "list %q", collection)
	}

	iter := col.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	snapshots := []store.Snapshot{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "list %q", collection)
		}

		data, err := json.Marshal(snap.Data())
		if err != nil {
			return nil, errors.Wrapf(err, "list %q: encode %s", collection, snap.Ref.ID)
		}
		snapshots = append(snapshots, store.Snapshot{
			ID:   snap.Ref.ID,
			Path: collection + "/" + snap.Ref.ID,
			Data: data,
		})
	}
	return snapshots, nil
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{s, tx})
	})
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

type firestoreTx struct {
	s  *FirestoreStore
	tx *firestore.Transaction
}

func (t *firestoreTx) Get(path string, dst any) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "get %q", path)
	}
	snap, err := t.tx.Get(ref)
	return decodeSnapshot(path, snap, err, dst)
}

func (t *firestoreTx) Set(path string, src any) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "set %q", path)
	}
	data, err := store.ToMap(src)
	if err != nil {
		return errors.Wrapf(err, "set %q: encode", path)
	}
	return errors.Wrapf(t.tx.Set(ref, data), "set %q", path)
}

func (t *firestoreTx) Delete(path string) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return errors.Wrapf(err, "delete %q", path)
	}
	return errors.Wrapf(t.tx.Delete(ref), "delete %q", path)
}

func decodeSnapshot(path string, snap *firestore.DocumentSnapshot, err error, dst any) error {
	switch {
	case status.Code(err) == codes.NotFound:
		return errors.Wrapf(store.ErrNotFound, "get %q", path)
	case err != nil:
		return errors.Wrapf(err, "get %q", path)
	case !snap.Exists():
		return errors.Wrapf(store.ErrNotFound, "get %q", path)
	}
	return errors.Wrapf(store.FromMap(snap.Data(), dst), "get %q: decode", path)
}
