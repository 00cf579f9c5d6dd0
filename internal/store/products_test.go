package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

func newProduct(name, category string) model.ProductRow {
	return model.ProductRow{
		Name:     name,
		Category: category,
		Location: model.LocationRoma,
		Stock:    4,
		Status:   model.StatusAvailable,
	}
}

func TestInsertAndGetProduct(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p, err := InsertProduct(ctx, database, newProduct("RCF Sub", "Diffusori Audio"))
	if err != nil {
		t.Fatalf("InsertProduct: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated ID")
	}
	if p.ImageURL != nil {
		t.Errorf("expected nil image_url, got %q", *p.ImageURL)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if !p.Price.IsZero() {
		t.Errorf("expected zero price, got %s", p.Price)
	}

	got, err := GetProduct(ctx, database, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.Name != "RCF Sub" || got.Stock != 4 || got.Location != model.LocationRoma {
		t.Errorf("unexpected product: %+v", got)
	}

	missing, err := GetProduct(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing product")
	}
}

func TestListProducts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	InsertProduct(ctx, database, newProduct("Sub", "Diffusori Audio"))
	time.Sleep(2 * time.Millisecond)
	InsertProduct(ctx, database, newProduct("Mixer", "Mixer & Regia Audio"))

	all, err := ListProducts(ctx, database, ProductQuery{})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}
	if all[0].Name != "Mixer" {
		t.Errorf("expected newest first, got %q", all[0].Name)
	}

	filtered, err := ListProducts(ctx, database, ProductQuery{Category: "Diffusori Audio"})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "Sub" {
		t.Errorf("expected only Sub, got %+v", filtered)
	}
}

func TestUpdateProduct(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p, _ := InsertProduct(ctx, database, newProduct("Sub", "Diffusori Audio"))
	if err := SetProductPrice(ctx, database, p.ID, decimal.RequireFromString("25.50")); err != nil {
		t.Fatalf("SetProductPrice: %v", err)
	}

	url := "http://localhost/storage/v1/object/public/portfolio/a.jpg"
	p.Stock = 2
	p.ImageURL = &url
	p.UpdatedAt = time.Now().UTC().Add(time.Minute)
	if err := UpdateProduct(ctx, database, *p); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	got, _ := GetProduct(ctx, database, p.ID)
	if got.Stock != 2 {
		t.Errorf("expected stock 2, got %d", got.Stock)
	}
	if got.ImageURL == nil || *got.ImageURL != url {
		t.Errorf("expected image url %q, got %v", url, got.ImageURL)
	}
	if !got.Price.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("expected price to survive update, got %s", got.Price)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("expected created_at unchanged")
	}

	p.ID = "missing"
	if err := UpdateProduct(ctx, database, *p); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p, _ := InsertProduct(ctx, database, newProduct("Sub", "Diffusori Audio"))
	if err := DeleteProduct(ctx, database, p.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}

	got, _ := GetProduct(ctx, database, p.ID)
	if got != nil {
		t.Error("expected product to be gone")
	}

	if err := DeleteProduct(ctx, database, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListProductsMissingTable(t *testing.T) {
	database := db.NewEmptyTestDB(t)

	_, err := ListProducts(context.Background(), database, ProductQuery{})
	if !db.IsMissingTable(err) {
		t.Errorf("expected missing table error, got %v", err)
	}
}
