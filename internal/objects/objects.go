// Package objects stores binary objects (catalog images) in named buckets and
// resolves their public URLs.
package objects

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Bucket holds every catalog image. Object names are flat, with no folders.
const Bucket = "portfolio"

// PublicPrefix is the URL path under which objects are published.
const PublicPrefix = "/storage/v1/object/public/"

// ErrNotFound is returned by Open for a missing object.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the binary side of the data gateway.
type ObjectStore interface {
	// Upload stores r under bucket/name.
	Upload(ctx context.Context, bucket, name string, r io.Reader, contentType string) error
	// PublicURL returns the URL the object is reachable at. It does not check
	// that the object exists.
	PublicURL(bucket, name string) string
	// Remove deletes the named objects. Missing objects are not an error.
	Remove(ctx context.Context, bucket string, names []string) error
}

// Lister is implemented by stores that can enumerate a bucket.
type Lister interface {
	List(ctx context.Context, bucket string) ([]string, error)
}

// Object is an object read back from a store that serves content itself.
type Object struct {
	Data        []byte
	ContentType string
}

// Opener is implemented by stores whose objects are served by this process.
type Opener interface {
	Open(ctx context.Context, bucket, name string) (*Object, error)
}

// Redirector is implemented by stores whose objects are served elsewhere.
type Redirector interface {
	DeliveryURL(bucket, name string) (string, error)
}

// publicURL joins a base URL with the public object path.
func publicURL(baseURL, bucket, name string) string {
	return strings.TrimSuffix(baseURL, "/") + PublicPrefix + bucket + "/" + name
}
