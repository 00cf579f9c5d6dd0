package catalog

import (
	"strings"

	"github.com/erazemk/noleggio/internal/model"
)

// Upload is an image file staged on a form, not yet sent to the object store.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Fields are the user-editable values of a catalog item. The schema tags
// match the names of the HTML form inputs.
type Fields struct {
	Title       string `schema:"title"`
	Description string `schema:"description"`
	Category    string `schema:"category"`
	Location    string `schema:"location"`
	Stock       int    `schema:"stock"`
	Status      string `schema:"status"`
}

// Validate runs the shallow checks: required title, non-negative stock and
// enumeration membership. There are no cross-field rules; stock 0 with
// status Available is accepted.
func (f Fields) Validate(kind model.Kind) error {
	if strings.TrimSpace(f.Title) == "" {
		return &ValidationError{Field: "title", Message: "obbligatorio"}
	}
	if !model.ValidCategory(kind, f.Category) {
		return &ValidationError{Field: "category", Message: "categoria non valida"}
	}
	if kind != model.KindInventory {
		return nil
	}
	if f.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "deve essere maggiore o uguale a zero"}
	}
	if !model.ValidLocation(f.Location) {
		return &ValidationError{Field: "location", Message: "sede non valida"}
	}
	if !model.ValidStatus(f.Status) {
		return &ValidationError{Field: "status", Message: "stato non valido"}
	}
	return nil
}

// DefaultFields are the values a new item of the given kind starts with.
func DefaultFields(kind model.Kind) Fields {
	f := Fields{
		Category: model.CategoriesFor(kind)[0],
		Stock:    model.DefaultStock(kind),
	}
	if kind == model.KindInventory {
		f.Location = model.Locations[0]
		f.Status = model.Statuses[0]
	}
	return f
}

// FieldsOf copies the editable values out of an existing item. Blank
// location and status fall back to the defaults.
func FieldsOf(item *model.CatalogItem) Fields {
	f := Fields{
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Location:    item.Location,
		Stock:       item.Stock,
		Status:      item.Status,
	}
	if item.Kind == model.KindInventory {
		if f.Location == "" {
			f.Location = model.Locations[0]
		}
		if f.Status == "" {
			f.Status = model.Statuses[0]
		}
	}
	return f
}

// Form is the editor for one catalog item. A nil Seed means a new item.
// At most one Upload is staged at a time.
type Form struct {
	Kind   model.Kind
	Seed   *model.CatalogItem
	Fields Fields

	// Editable is false while an existing inventory item is shown read-only.
	Editable bool
	// Err is the message of the last failed submission.
	Err string

	staged *Upload
}

// NewForm opens a form for kind, seeded from item when it is not nil.
func NewForm(kind model.Kind, item *model.CatalogItem) *Form {
	if item == nil {
		return &Form{Kind: kind, Fields: DefaultFields(kind), Editable: true}
	}
	seed := *item
	return &Form{
		Kind:     kind,
		Seed:     &seed,
		Fields:   FieldsOf(&seed),
		Editable: kind != model.KindInventory,
	}
}

// IsNew reports whether submitting the form inserts a row.
func (f *Form) IsNew() bool {
	return f.Seed == nil
}

// BeginEdit switches a read-only form into edit mode.
func (f *Form) BeginEdit() {
	f.Editable = true
}

// Stage replaces any previously staged file with u.
func (f *Form) Stage(u *Upload) {
	f.staged = u
}

// Staged returns the staged file, or nil.
func (f *Form) Staged() *Upload {
	return f.staged
}

// CurrentImage is the image URL the item has before submission.
func (f *Form) CurrentImage() string {
	if f.Seed == nil {
		return ""
	}
	return f.Seed.Image()
}
