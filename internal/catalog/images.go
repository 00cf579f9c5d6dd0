package catalog

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/noleggio/internal/objects"
)

// managedMarker identifies image URLs that point into our own bucket.
const managedMarker = objects.PublicPrefix + objects.Bucket + "/"

// defaultExt is used when the uploaded file name has no extension.
const defaultExt = "jpg"

// NewObjectName returns a fresh, flat object name of the form
// {randomToken}-{unixMillis}.{ext}. ext comes from filename, lowercased.
func NewObjectName(filename string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = defaultExt
	}
	return fmt.Sprintf("%s-%d.%s", randomToken(), now.UnixMilli(), ext)
}

// randomToken is a base36 rendering of 64 random bits.
func randomToken() string {
	var b [8]byte
	rand.Read(b[:])
	return strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
}

// IsManagedURL reports whether url points at an object in the managed
// bucket. Only such objects are ever deleted by this package.
func IsManagedURL(url string) bool {
	return strings.Contains(url, managedMarker)
}

// ObjectNameFromURL extracts the object name from a managed URL.
func ObjectNameFromURL(url string) (string, bool) {
	_, name, ok := strings.Cut(url, managedMarker)
	if !ok {
		return "", false
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// CleanupPolicy decides what a failed removal of a replaced or orphaned
// image means for the operation that triggered it.
type CleanupPolicy string

const (
	// BestEffortCleanup logs removal failures; the write still succeeds.
	BestEffortCleanup CleanupPolicy = "best-effort"
	// StrictCleanup reports removal failures as a *CleanupError after the
	// row write has been committed.
	StrictCleanup CleanupPolicy = "strict"
)

// ParseCleanupPolicy parses a policy name. Empty means BestEffortCleanup.
func ParseCleanupPolicy(s string) (CleanupPolicy, error) {
	switch CleanupPolicy(s) {
	case "", BestEffortCleanup:
		return BestEffortCleanup, nil
	case StrictCleanup:
		return StrictCleanup, nil
	}
	return "", fmt.Errorf("unknown cleanup policy %q (want %q or %q)", s, BestEffortCleanup, StrictCleanup)
}
