package store

import (
	"context"
	"fmt"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

// Catalog exposes the products and portfolio_items tables as one catalog of
// model.CatalogItem, keyed by kind.
type Catalog struct {
	DB *db.DB
}

// List returns the items of a kind, newest first, optionally limited to a category.
func (c *Catalog) List(ctx context.Context, kind model.Kind, category string) ([]model.CatalogItem, error) {
	switch kind {
	case model.KindInventory:
		rows, err := ListProducts(ctx, c.DB, ProductQuery{Category: category})
		if err != nil {
			return nil, err
		}
		items := make([]model.CatalogItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, model.ItemFromProduct(r))
		}
		return items, nil
	case model.KindPortfolio:
		rows, err := ListPortfolio(ctx, c.DB, PortfolioQuery{Category: category})
		if err != nil {
			return nil, err
		}
		items := make([]model.CatalogItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, model.ItemFromPortfolio(r))
		}
		return items, nil
	}
	return nil, fmt.Errorf("unknown catalog kind %q", kind)
}

// Get returns a single item, or nil if it does not exist.
func (c *Catalog) Get(ctx context.Context, kind model.Kind, id string) (*model.CatalogItem, error) {
	switch kind {
	case model.KindInventory:
		r, err := GetProduct(ctx, c.DB, id)
		if err != nil || r == nil {
			return nil, err
		}
		item := model.ItemFromProduct(*r)
		return &item, nil
	case model.KindPortfolio:
		r, err := GetPortfolioItem(ctx, c.DB, id)
		if err != nil || r == nil {
			return nil, err
		}
		item := model.ItemFromPortfolio(*r)
		return &item, nil
	}
	return nil, fmt.Errorf("unknown catalog kind %q", kind)
}

// Insert creates a new row for the item's kind and returns it as stored.
func (c *Catalog) Insert(ctx context.Context, item model.CatalogItem) (*model.CatalogItem, error) {
	switch item.Kind {
	case model.KindInventory:
		r, err := InsertProduct(ctx, c.DB, model.ProductFromItem(item))
		if err != nil {
			return nil, err
		}
		stored := model.ItemFromProduct(*r)
		return &stored, nil
	case model.KindPortfolio:
		r, err := InsertPortfolioItem(ctx, c.DB, model.PortfolioFromItem(item))
		if err != nil {
			return nil, err
		}
		stored := model.ItemFromPortfolio(*r)
		return &stored, nil
	}
	return nil, fmt.Errorf("unknown catalog kind %q", item.Kind)
}

// Update overwrites the editable fields of an existing item.
func (c *Catalog) Update(ctx context.Context, item model.CatalogItem) error {
	switch item.Kind {
	case model.KindInventory:
		return UpdateProduct(ctx, c.DB, model.ProductFromItem(item))
	case model.KindPortfolio:
		return UpdatePortfolioItem(ctx, c.DB, model.PortfolioFromItem(item))
	}
	return fmt.Errorf("unknown catalog kind %q", item.Kind)
}

// Delete removes an item permanently.
func (c *Catalog) Delete(ctx context.Context, kind model.Kind, id string) error {
	switch kind {
	case model.KindInventory:
		return DeleteProduct(ctx, c.DB, id)
	case model.KindPortfolio:
		return DeletePortfolioItem(ctx, c.DB, id)
	}
	return fmt.Errorf("unknown catalog kind %q", kind)
}

// ImageURLs returns every image_url referenced by either catalog.
func (c *Catalog) ImageURLs(ctx context.Context) ([]string, error) {
	products, err := ProductImageURLs(ctx, c.DB)
	if err != nil {
		return nil, err
	}
	portfolio, err := PortfolioImageURLs(ctx, c.DB)
	if err != nil {
		return nil, err
	}
	return append(products, portfolio...), nil
}
