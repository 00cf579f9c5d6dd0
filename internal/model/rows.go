package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRow is a row of the products (inventory) table.
type ProductRow struct {
	ID          string
	Name        string
	Description string
	Category    string
	Location    string
	Stock       int
	Status      string
	Price       decimal.Decimal
	ImageURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PortfolioRow is a row of the portfolio_items table.
type PortfolioRow struct {
	ID          string
	Title       string
	Description string
	Category    string
	ImageURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayTitle resolves the label of a row: title, then name, then UntitledLabel.
func DisplayTitle(title, name string) string {
	if title != "" {
		return title
	}
	if name != "" {
		return name
	}
	return UntitledLabel
}

// ItemFromProduct converts an inventory row into the shared view-model.
func ItemFromProduct(r ProductRow) CatalogItem {
	price := r.Price
	return CatalogItem{
		ID:          r.ID,
		Kind:        KindInventory,
		Title:       DisplayTitle("", r.Name),
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Stock:       r.Stock,
		Status:      r.Status,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Price:       &price,
	}
}

// ProductFromItem converts the view-model back into an inventory row.
// Price is not edited through the catalog form; a nil price becomes zero.
func ProductFromItem(i CatalogItem) ProductRow {
	price := decimal.Zero
	if i.Price != nil {
		price = *i.Price
	}
	return ProductRow{
		ID:          i.ID,
		Name:        i.Title,
		Description: i.Description,
		Category:    i.Category,
		Location:    i.Location,
		Stock:       i.Stock,
		Status:      i.Status,
		Price:       price,
		ImageURL:    i.ImageURL,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// ItemFromPortfolio converts a portfolio row into the shared view-model.
func ItemFromPortfolio(r PortfolioRow) CatalogItem {
	return CatalogItem{
		ID:          r.ID,
		Kind:        KindPortfolio,
		Title:       DisplayTitle(r.Title, ""),
		Description: r.Description,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// PortfolioFromItem converts the view-model back into a portfolio row.
func PortfolioFromItem(i CatalogItem) PortfolioRow {
	return PortfolioRow{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Category:    i.Category,
		ImageURL:    i.ImageURL,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}
