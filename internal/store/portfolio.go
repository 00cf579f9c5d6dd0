package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

const portfolioColumns = `id, title, description, category, image_url, created_at, updated_at`

// PortfolioQuery filters ListPortfolio. Empty fields match everything.
type PortfolioQuery struct {
	Category string
}

func scanPortfolioItem(row interface{ Scan(...any) error }) (*model.PortfolioRow, error) {
	p := &model.PortfolioRow{}
	var description, imageURL sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &description, &p.Category, &imageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}
	return p, nil
}

// ListPortfolio returns portfolio rows, newest first.
func ListPortfolio(ctx context.Context, db *db.DB, q PortfolioQuery) ([]model.PortfolioRow, error) {
	var rows *sql.Rows
	var err error

	if q.Category != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+portfolioColumns+` FROM portfolio_items WHERE category = ? ORDER BY created_at DESC`, q.Category,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+portfolioColumns+` FROM portfolio_items ORDER BY created_at DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing portfolio: %w", err)
	}
	defer rows.Close()

	var items []model.PortfolioRow
	for rows.Next() {
		p, err := scanPortfolioItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning portfolio item: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// GetPortfolioItem returns a portfolio item by ID.
func GetPortfolioItem(ctx context.Context, db *db.DB, id string) (*model.PortfolioRow, error) {
	p, err := scanPortfolioItem(db.QueryRowContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolio_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting portfolio item: %w", err)
	}
	return p, nil
}

// InsertPortfolioItem stores a new portfolio item with a fresh ID and timestamps.
func InsertPortfolioItem(ctx context.Context, db *db.DB, p model.PortfolioRow) (*model.PortfolioRow, error) {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := db.ExecContext(ctx,
		`INSERT INTO portfolio_items (`+portfolioColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.Category, nullString(p.ImageURL), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting portfolio item: %w", err)
	}

	return GetPortfolioItem(ctx, db, p.ID)
}

// UpdatePortfolioItem overwrites the editable columns of a portfolio item.
func UpdatePortfolioItem(ctx context.Context, db *db.DB, p model.PortfolioRow) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	result, err := db.ExecContext(ctx,
		`UPDATE portfolio_items SET title = ?, description = ?, category = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Description, p.Category, nullString(p.ImageURL), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating portfolio item: %w", err)
	}
	if err := checkAffected(result.RowsAffected()); err != nil {
		return fmt.Errorf("updating portfolio item %s: %w", p.ID, err)
	}
	return nil
}

// DeletePortfolioItem removes a portfolio item permanently.
func DeletePortfolioItem(ctx context.Context, db *db.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM portfolio_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting portfolio item: %w", err)
	}
	if err := checkAffected(result.RowsAffected()); err != nil {
		return fmt.Errorf("deleting portfolio item %s: %w", id, err)
	}
	return nil
}

// PortfolioImageURLs returns every non-empty image_url stored on portfolio items.
func PortfolioImageURLs(ctx context.Context, db *db.DB) ([]string, error) {
	return imageURLs(ctx, db, "portfolio_items")
}
