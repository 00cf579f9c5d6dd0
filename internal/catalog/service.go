// Package catalog implements the inventory and portfolio catalog: the item
// form with its upload-write-cleanup sequence, listing and filtering, and
// category aggregation.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/noleggio/internal/imaging"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/objects"
)

// Repository is the row side of the data gateway, with both tables behind
// one item shape.
type Repository interface {
	List(ctx context.Context, kind model.Kind, category string) ([]model.CatalogItem, error)
	Get(ctx context.Context, kind model.Kind, id string) (*model.CatalogItem, error)
	Insert(ctx context.Context, item model.CatalogItem) (*model.CatalogItem, error)
	Update(ctx context.Context, item model.CatalogItem) error
	Delete(ctx context.Context, kind model.Kind, id string) error
}

// Service runs catalog operations against a row store and an object store.
type Service struct {
	Repo    Repository
	Objects objects.ObjectStore
	Policy  CleanupPolicy

	// ProcessImages re-encodes uploads with ImageOptions before storing them.
	ProcessImages bool
	ImageOptions  imaging.Options

	Logger *slog.Logger
	Now    func() time.Time
}

// NewService creates a Service with best-effort cleanup and image processing on.
func NewService(repo Repository, store objects.ObjectStore) *Service {
	return &Service{
		Repo:          repo,
		Objects:       store,
		Policy:        BestEffortCleanup,
		ProcessImages: true,
		ImageOptions:  imaging.DefaultOptions,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit saves the form. The order is fixed: upload the staged image, resolve
// image_url, write the row, then remove the replaced image. A failed upload
// writes nothing; a failed write leaves the new object orphaned; a failed
// removal is handled according to Policy. On success the staged file and
// f.Err are cleared and the saved item is returned.
func (s *Service) Submit(ctx context.Context, f *Form) (*model.CatalogItem, error) {
	item, err := s.submit(ctx, f)
	if err != nil {
		f.Err = err.Error()
		// The row is saved, only cleanup failed.
		var cleanupErr *CleanupError
		if errors.As(err, &cleanupErr) {
			f.staged = nil
		}
		return item, err
	}
	f.Err = ""
	f.staged = nil
	return item, nil
}

func (s *Service) submit(ctx context.Context, f *Form) (*model.CatalogItem, error) {
	if err := f.Fields.Validate(f.Kind); err != nil {
		return nil, err
	}

	var uploaded string
	if u := f.Staged(); u != nil {
		name, err := s.upload(ctx, u)
		if err != nil {
			return nil, &UploadError{Err: err}
		}
		uploaded = name
	}

	// Without a new upload the old value is kept as is.
	var imageURL *string
	if uploaded != "" {
		u := s.Objects.PublicURL(objects.Bucket, uploaded)
		imageURL = &u
	} else if f.Seed != nil {
		imageURL = f.Seed.ImageURL
	}

	payload := model.CatalogItem{
		Kind:        f.Kind,
		Title:       f.Fields.Title,
		Description: f.Fields.Description,
		Category:    f.Fields.Category,
		ImageURL:    imageURL,
		UpdatedAt:   s.now(),
	}
	if f.Kind == model.KindInventory {
		payload.Location = f.Fields.Location
		payload.Stock = f.Fields.Stock
		payload.Status = f.Fields.Status
		if f.Seed != nil {
			payload.Price = f.Seed.Price
		}
	}

	if f.Seed == nil {
		saved, err := s.Repo.Insert(ctx, payload)
		if err != nil {
			s.orphaned(uploaded, "insert", err)
			return nil, &WriteError{Op: "insert", Err: err, Orphan: uploaded}
		}
		s.logger().Info("catalog item created", "kind", f.Kind, "id", saved.ID, "title", saved.Title)
		return saved, nil
	}

	// Update, then remove the image it replaced.
	payload.ID = f.Seed.ID
	payload.CreatedAt = f.Seed.CreatedAt
	if err := s.Repo.Update(ctx, payload); err != nil {
		s.orphaned(uploaded, "update", err)
		return nil, &WriteError{Op: "update", Err: err, Orphan: uploaded}
	}
	s.logger().Info("catalog item updated", "kind", f.Kind, "id", payload.ID)

	if uploaded != "" && f.Seed.HasImage() {
		if err := s.cleanup(ctx, f.Seed.Image()); err != nil {
			return &payload, err
		}
	}
	return &payload, nil
}

// upload stores u under a fresh name and returns that name.
func (s *Service) upload(ctx context.Context, u *Upload) (string, error) {
	data, contentType, filename := u.Data, u.ContentType, u.Filename

	if s.ProcessImages {
		res, err := imaging.Process(bytes.NewReader(data), s.ImageOptions)
		switch {
		case errors.Is(err, imaging.ErrUnsupported):
			// Stored as uploaded, under its own extension.
			contentType = imaging.Sniff(data)
			s.logger().Info("image format not re-encoded, storing original", "filename", filename, "mime", contentType)
		case err != nil:
			return "", err
		default:
			data, contentType = res.Data, res.MIME
			filename = "upload." + res.Ext
		}
	}

	name := NewObjectName(filename, s.now())
	if err := s.Objects.Upload(ctx, objects.Bucket, name, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}
	s.logger().Info("image uploaded", "object", name, "bytes", len(data))
	return name, nil
}

func (s *Service) orphaned(name, op string, err error) {
	if name == "" {
		return
	}
	s.logger().Warn("row write failed after upload, object left orphaned",
		"op", op, "object", name, "error", err)
}

// cleanup removes the object behind url if it is managed. Externally hosted
// URLs are never touched.
func (s *Service) cleanup(ctx context.Context, url string) error {
	if !IsManagedURL(url) {
		return nil
	}
	name, ok := ObjectNameFromURL(url)
	if !ok {
		return nil
	}

	err := s.Objects.Remove(ctx, objects.Bucket, []string{name})
	if err == nil {
		s.logger().Info("image removed", "object", name)
		return nil
	}

	if s.Policy == StrictCleanup {
		return &CleanupError{Object: name, Err: err}
	}
	s.logger().Warn("removing image failed, object left orphaned", "object", name, "error", err)
	return nil
}

// Delete removes item's row and then, if the row is gone, its managed image.
// When the row delete fails nothing is removed from the object store.
func (s *Service) Delete(ctx context.Context, item *model.CatalogItem) error {
	if item == nil {
		return fmt.Errorf("deleting catalog item: no item")
	}
	if err := s.Repo.Delete(ctx, item.Kind, item.ID); err != nil {
		return &WriteError{Op: "delete", Err: err}
	}
	s.logger().Info("catalog item deleted", "kind", item.Kind, "id", item.ID)

	if item.HasImage() {
		return s.cleanup(ctx, item.Image())
	}
	return nil
}
