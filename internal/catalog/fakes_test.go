package catalog

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/objects"
)

const testBaseURL = "http://admin.test"

// fakeObjects is an in-memory object store that records calls.
type fakeObjects struct {
	mu        sync.Mutex
	data      map[string][]byte
	uploads   []string
	removes   []string
	uploadErr error
	removeErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{data: map[string][]byte{}}
}

func (f *fakeObjects) Upload(_ context.Context, bucket, name string, r io.Reader, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.uploads = append(f.uploads, name)
	f.data[bucket+"/"+name] = b
	return nil
}

func (f *fakeObjects) PublicURL(bucket, name string) string {
	return testBaseURL + objects.PublicPrefix + bucket + "/" + name
}

func (f *fakeObjects) Remove(_ context.Context, bucket string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, names...)
	if f.removeErr != nil {
		return f.removeErr
	}
	for _, n := range names {
		delete(f.data, bucket+"/"+n)
	}
	return nil
}

func (f *fakeObjects) exists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[objects.Bucket+"/"+name]
	return ok
}

// failingRepo wraps a Repository and fails selected operations.
type failingRepo struct {
	Repository
	insertErr error
	updateErr error
	deleteErr error
	listErr   error
}

func (r *failingRepo) Insert(ctx context.Context, item model.CatalogItem) (*model.CatalogItem, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	return r.Repository.Insert(ctx, item)
}

func (r *failingRepo) Update(ctx context.Context, item model.CatalogItem) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.Repository.Update(ctx, item)
}

func (r *failingRepo) Delete(ctx context.Context, kind model.Kind, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.Repository.Delete(ctx, kind, id)
}

func (r *failingRepo) List(ctx context.Context, kind model.Kind, category string) ([]model.CatalogItem, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.Repository.List(ctx, kind, category)
}

var errBackend = errors.New("backend unavailable")
