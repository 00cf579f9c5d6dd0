package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		title, name string
		want        string
	}{
		{"Line Array", "", "Line Array"},
		{"Line Array", "RCF Sub", "Line Array"},
		{"", "RCF Sub", "RCF Sub"},
		{"", "", UntitledLabel},
	}

	for _, tt := range tests {
		if got := DisplayTitle(tt.title, tt.name); got != tt.want {
			t.Errorf("DisplayTitle(%q, %q) = %q, want %q", tt.title, tt.name, got, tt.want)
		}
	}
}

func TestProductAdapterRoundTrip(t *testing.T) {
	url := "https://example.com/a.jpg"
	now := time.Now().UTC().Truncate(time.Second)
	row := ProductRow{
		ID:          "p1",
		Name:        "RCF Sub",
		Description: "Subwoofer 18\"",
		Category:    "Diffusori Audio",
		Location:    LocationRoma,
		Stock:       4,
		Status:      StatusAvailable,
		Price:       decimal.RequireFromString("25.50"),
		ImageURL:    &url,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	item := ItemFromProduct(row)
	if item.Kind != KindInventory {
		t.Errorf("expected kind %q, got %q", KindInventory, item.Kind)
	}
	if item.Title != "RCF Sub" {
		t.Errorf("expected title 'RCF Sub', got %q", item.Title)
	}

	if item.Price == nil || !item.Price.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("expected price 25.5, got %v", item.Price)
	}

	back := ProductFromItem(item)
	if !back.Price.Equal(row.Price) {
		t.Errorf("expected price to survive round trip, got %s", back.Price)
	}
	if back.Name != row.Name || back.Stock != row.Stock || back.Status != row.Status || back.Location != row.Location {
		t.Errorf("round trip mismatch: %+v vs %+v", back, row)
	}
	if back.ImageURL == nil || *back.ImageURL != url {
		t.Errorf("expected image url to survive round trip, got %v", back.ImageURL)
	}
}

func TestItemFromProductUntitled(t *testing.T) {
	item := ItemFromProduct(ProductRow{ID: "x"})
	if item.Title != UntitledLabel {
		t.Errorf("expected %q, got %q", UntitledLabel, item.Title)
	}
}

func TestPortfolioAdapter(t *testing.T) {
	item := ItemFromPortfolio(PortfolioRow{ID: "f1", Title: "Concerto", Category: "LUCI"})
	if item.Kind != KindPortfolio || item.Title != "Concerto" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.ImageURL != nil {
		t.Errorf("expected nil image url, got %v", *item.ImageURL)
	}
	if item.Price != nil {
		t.Errorf("expected no price on portfolio items, got %s", item.Price)
	}

	row := PortfolioFromItem(item)
	if row.Title != "Concerto" || row.Category != "LUCI" {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestKindTable(t *testing.T) {
	if KindInventory.Table() != "products" {
		t.Errorf("expected products, got %q", KindInventory.Table())
	}
	if KindPortfolio.Table() != "portfolio_items" {
		t.Errorf("expected portfolio_items, got %q", KindPortfolio.Table())
	}
	if _, ok := ParseKind("categorie"); ok {
		t.Error("expected categorie not to parse as a catalog kind")
	}
}

func TestEnumerations(t *testing.T) {
	if len(InventoryCategories) != 10 {
		t.Errorf("expected 10 inventory categories, got %d", len(InventoryCategories))
	}
	if !ValidCategory(KindPortfolio, "PROGETTI") {
		t.Error("expected PROGETTI to be a portfolio category")
	}
	if ValidCategory(KindInventory, "PROGETTI") {
		t.Error("expected PROGETTI not to be an inventory category")
	}
	if Locations[0] != LocationRoma {
		t.Errorf("expected default location Roma, got %q", Locations[0])
	}
	if Statuses[0] != StatusAvailable {
		t.Errorf("expected default status Available, got %q", Statuses[0])
	}
	if DefaultStock(KindInventory) != 0 || DefaultStock(KindPortfolio) != 1 {
		t.Error("unexpected default stock")
	}
}
