package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects which catalog (and backing table) an item belongs to.
type Kind string

// Catalog kinds.
const (
	KindInventory Kind = "inventario"
	KindPortfolio Kind = "portfolio"
)

// Table returns the backing table name for the kind.
func (k Kind) Table() string {
	switch k {
	case KindInventory:
		return "products"
	case KindPortfolio:
		return "portfolio_items"
	default:
		return ""
	}
}

// Valid reports whether k is a known catalog kind.
func (k Kind) Valid() bool {
	return k == KindInventory || k == KindPortfolio
}

// ParseKind parses a kind from its URL/tab form.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	return k, k.Valid()
}

// CatalogItem is the view-model shared by the inventory and portfolio screens.
// Rows from both tables are converted into it by the adapters in rows.go.
type CatalogItem struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location,omitempty"`
	Stock       int       `json:"stock"`
	Status      string    `json:"status,omitempty"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Price is the rental price of inventory items; nil for portfolio.
	Price *decimal.Decimal `json:"price,omitempty"`
}

// HasImage reports whether the item references an image.
func (i *CatalogItem) HasImage() bool {
	return i.ImageURL != nil && *i.ImageURL != ""
}

// Image returns the image URL or an empty string.
func (i *CatalogItem) Image() string {
	if i.ImageURL == nil {
		return ""
	}
	return *i.ImageURL
}

// UntitledLabel is shown when a row has neither a title nor a name.
const UntitledLabel = "Untitled"

// InventoryCategories is the fixed inventory category list, in display order.
var InventoryCategories = []string{
	"Diffusori Audio",
	"Mixer & Regia Audio",
	"Microfoni & Wireless",
	"Stagebox & Networking",
	"Video & LED Wall",
	"Luci & Illuminazione",
	"Cavi & Cablaggi",
	"Strutture & Supporti",
	"Distribuzione Elettrica",
	"Accessori Tecnici",
}

// PortfolioCategories is the fixed portfolio category list.
var PortfolioCategories = []string{
	"AUDIO",
	"LUCI",
	"VIDEO",
	"STRUTTURE",
	"PROGETTI",
}

// Locations.
const (
	LocationRoma     = "Roma"
	LocationChiarano = "Chiarano"
)

// Locations lists the warehouses; the first one is the default.
var Locations = []string{LocationRoma, LocationChiarano}

// Inventory statuses.
const (
	StatusAvailable   = "Available"
	StatusInUse       = "In Use"
	StatusMaintenance = "Maintenance"
	StatusOutOfStock  = "Out of Stock"
)

// Statuses lists the inventory statuses; the first one is the default.
var Statuses = []string{StatusAvailable, StatusInUse, StatusMaintenance, StatusOutOfStock}

// CategoriesFor returns the category enumeration used by the given kind.
func CategoriesFor(k Kind) []string {
	if k == KindPortfolio {
		return PortfolioCategories
	}
	return InventoryCategories
}

// ValidCategory reports whether category belongs to the kind's enumeration.
func ValidCategory(k Kind, category string) bool {
	return slices.Contains(CategoriesFor(k), category)
}

// ValidLocation reports whether loc is a known location.
func ValidLocation(loc string) bool {
	return slices.Contains(Locations, loc)
}

// ValidStatus reports whether status is a known inventory status.
func ValidStatus(status string) bool {
	return slices.Contains(Statuses, status)
}

// DefaultStock is the stock pre-filled in a new item of the given kind.
func DefaultStock(k Kind) int {
	if k == KindPortfolio {
		return 1
	}
	return 0
}
