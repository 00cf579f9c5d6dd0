package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/noleggio/internal/db"
)

// StoredObject is a binary object kept in the storage_objects table.
type StoredObject struct {
	Bucket      string
	Name        string
	Data        []byte
	ContentType string
	CreatedAt   time.Time
}

// PutObject stores (or replaces) an object.
func PutObject(ctx context.Context, db *db.DB, bucket, name string, data []byte, contentType string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM storage_objects WHERE bucket = ? AND name = ?`, bucket, name,
	)
	if err != nil {
		return fmt.Errorf("replacing object: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO storage_objects (bucket, name, data, content_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		bucket, name, data, contentType, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing object: %w", err)
	}
	return nil
}

// GetObject returns an object, or nil if it does not exist.
func GetObject(ctx context.Context, db *db.DB, bucket, name string) (*StoredObject, error) {
	o := &StoredObject{Bucket: bucket, Name: name}
	err := db.QueryRowContext(ctx,
		`SELECT data, content_type, created_at FROM storage_objects WHERE bucket = ? AND name = ?`,
		bucket, name,
	).Scan(&o.Data, &o.ContentType, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	return o, nil
}

// DeleteObjects removes the named objects from a bucket. Missing names are ignored.
func DeleteObjects(ctx context.Context, db *db.DB, bucket string, names []string) error {
	for _, name := range names {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM storage_objects WHERE bucket = ? AND name = ?`, bucket, name,
		); err != nil {
			return fmt.Errorf("deleting object %s: %w", name, err)
		}
	}
	return nil
}

// ListObjectNames returns the names of every object in a bucket.
func ListObjectNames(ctx context.Context, db *db.DB, bucket string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM storage_objects WHERE bucket = ? ORDER BY name`, bucket,
	)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning object name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
