package catalog

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

// Listing is the result of a fetch. On failure Items is empty and Err is set;
// a previous listing is never kept around as stale data.
type Listing struct {
	Kind      model.Kind
	Category  string
	Items     []model.CatalogItem
	Err       *FetchError
	FetchedAt time.Time
}

// Fetch reads all items of kind, newest first, optionally limited to one category.
func (s *Service) Fetch(ctx context.Context, kind model.Kind, category string) Listing {
	l := Listing{Kind: kind, Category: category, FetchedAt: s.now()}

	items, err := s.Repo.List(ctx, kind, category)
	if err != nil {
		code := FetchFailed
		if db.IsMissingTable(err) {
			code = MissingTable
		}
		l.Items = []model.CatalogItem{}
		l.Err = &FetchError{Code: code, Kind: kind, Err: err}
		s.logger().Error("fetching catalog", "kind", kind, "category", category, "error", err)
		return l
	}

	if items == nil {
		items = []model.CatalogItem{}
	}
	l.Items = items
	return l
}

// Filter keeps the items whose title, description or category contains query,
// ignoring case. An empty (or blank) query keeps everything. Filter never
// touches the store.
func Filter(items []model.CatalogItem, query string) []model.CatalogItem {
	folder := cases.Fold()
	q := folder.String(strings.TrimSpace(query))
	if q == "" {
		return items
	}

	out := make([]model.CatalogItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(folder.String(it.Title), q) ||
			strings.Contains(folder.String(it.Description), q) ||
			strings.Contains(folder.String(it.Category), q) {
			out = append(out, it)
		}
	}
	return out
}

// CategoryCount is one tile of the category browser.
type CategoryCount struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Pieces    int    `json:"pieces"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// CategorySummary aggregates the inventory over the fixed category list.
type CategorySummary struct {
	Categories []CategoryCount `json:"categories"`
	// Uncategorized counts rows whose category is not in the list.
	Uncategorized int `json:"uncategorized"`
	TotalItems    int `json:"total_items"`
	TotalPieces   int `json:"total_pieces"`
	Typologies    int `json:"typologies"`
}

// Aggregate groups items by the fixed inventory categories. Every category
// appears, with a zero count when nothing matches. The thumbnail is the image
// of the first item in the category that has one.
func Aggregate(items []model.CatalogItem) CategorySummary {
	sum := CategorySummary{
		Categories: make([]CategoryCount, len(model.InventoryCategories)),
		TotalItems: len(items),
	}
	index := make(map[string]int, len(model.InventoryCategories))
	for i, name := range model.InventoryCategories {
		sum.Categories[i].Name = name
		index[name] = i
	}

	names := make(map[string]struct{})
	for _, it := range items {
		sum.TotalPieces += it.Stock
		names[it.Title] = struct{}{}

		i, ok := index[it.Category]
		if !ok {
			sum.Uncategorized++
			continue
		}
		c := &sum.Categories[i]
		c.Count++
		c.Pieces += it.Stock
		if c.Thumbnail == "" && it.HasImage() {
			c.Thumbnail = it.Image()
		}
	}
	sum.Typologies = len(names)
	return sum
}

// Stats computes the dashboard figures. A catalog whose table is missing
// counts as empty.
func (s *Service) Stats(ctx context.Context) (model.DashboardStats, error) {
	stats := model.DashboardStats{CategoriesCount: len(model.InventoryCategories)}

	inventory, err := s.Repo.List(ctx, model.KindInventory, "")
	if err != nil && !db.IsMissingTable(err) {
		return stats, err
	}
	portfolio, err := s.Repo.List(ctx, model.KindPortfolio, "")
	if err != nil && !db.IsMissingTable(err) {
		return stats, err
	}

	stats.InventoryCount = len(inventory)
	stats.PortfolioCount = len(portfolio)
	stats.TotalInventoryPieces = Aggregate(inventory).TotalPieces
	return stats, nil
}
