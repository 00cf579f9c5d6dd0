package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

const productColumns = `id, name, description, category, location, stock, status, price, image_url, created_at, updated_at`

// ProductQuery filters ListProducts. Empty fields match everything.
type ProductQuery struct {
	Category string
}

func scanProduct(row interface{ Scan(...any) error }) (*model.ProductRow, error) {
	p := &model.ProductRow{}
	var description, imageURL sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Category, &p.Location, &p.Stock,
		&p.Status, &p.Price, &imageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}
	return p, nil
}

// ListProducts returns inventory rows, newest first.
func ListProducts(ctx context.Context, db *db.DB, q ProductQuery) ([]model.ProductRow, error) {
	var rows *sql.Rows
	var err error

	if q.Category != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+productColumns+` FROM products WHERE category = ? ORDER BY created_at DESC`, q.Category,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+productColumns+` FROM products ORDER BY created_at DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.ProductRow
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct returns a product by ID.
func GetProduct(ctx context.Context, db *db.DB, id string) (*model.ProductRow, error) {
	p, err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// InsertProduct stores a new product. The ID and timestamps are assigned here;
// whatever the caller put in them is ignored.
func InsertProduct(ctx context.Context, db *db.DB, p model.ProductRow) (*model.ProductRow, error) {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Category, p.Location, p.Stock, p.Status, p.Price.StringFixed(2),
		nullString(p.ImageURL), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting product: %w", err)
	}

	return GetProduct(ctx, db, p.ID)
}

// UpdateProduct overwrites the editable columns of a product. Price and
// created_at are left alone. A zero UpdatedAt is replaced with now.
func UpdateProduct(ctx context.Context, db *db.DB, p model.ProductRow) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, category = ?, location = ?, stock = ?,
		        status = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Category, p.Location, p.Stock, p.Status, nullString(p.ImageURL), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	if err := checkAffected(result.RowsAffected()); err != nil {
		return fmt.Errorf("updating product %s: %w", p.ID, err)
	}
	return nil
}

// SetProductPrice sets the rental price of a product.
func SetProductPrice(ctx context.Context, db *db.DB, id string, price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("setting product price: negative price %s", price)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE products SET price = ?, updated_at = ? WHERE id = ?`,
		price.StringFixed(2), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting product price: %w", err)
	}
	return checkAffected(result.RowsAffected())
}

// DeleteProduct removes a product permanently.
func DeleteProduct(ctx context.Context, db *db.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if err := checkAffected(result.RowsAffected()); err != nil {
		return fmt.Errorf("deleting product %s: %w", id, err)
	}
	return nil
}

// ProductImageURLs returns every non-empty image_url stored on products.
func ProductImageURLs(ctx context.Context, db *db.DB) ([]string, error) {
	return imageURLs(ctx, db, "products")
}

func imageURLs(ctx context.Context, db *db.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT image_url FROM `+table+` WHERE image_url IS NOT NULL AND image_url <> ''`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s image urls: %w", table, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning image url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
