package objects

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/store"
)

// MaxObjectSize caps a single upload.
const MaxObjectSize = 10 << 20

// DBStore keeps objects in the storage_objects table of the row store.
type DBStore struct {
	DB      *db.DB
	BaseURL string
}

// NewDBStore creates a DBStore publishing URLs under baseURL.
func NewDBStore(database *db.DB, baseURL string) *DBStore {
	return &DBStore{DB: database, BaseURL: baseURL}
}

// Upload implements ObjectStore.
func (s *DBStore) Upload(ctx context.Context, bucket, name string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxObjectSize {
		return fmt.Errorf("object %s exceeds %d bytes", name, MaxObjectSize)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return store.PutObject(ctx, s.DB, bucket, name, data, contentType)
}

// PublicURL implements ObjectStore.
func (s *DBStore) PublicURL(bucket, name string) string {
	return publicURL(s.BaseURL, bucket, name)
}

// Remove implements ObjectStore.
func (s *DBStore) Remove(ctx context.Context, bucket string, names []string) error {
	return store.DeleteObjects(ctx, s.DB, bucket, names)
}

// List implements Lister.
func (s *DBStore) List(ctx context.Context, bucket string) ([]string, error) {
	return store.ListObjectNames(ctx, s.DB, bucket)
}

// Open implements Opener.
func (s *DBStore) Open(ctx context.Context, bucket, name string) (*Object, error) {
	o, err := store.GetObject(ctx, s.DB, bucket, name)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	return &Object{Data: o.Data, ContentType: o.ContentType}, nil
}
