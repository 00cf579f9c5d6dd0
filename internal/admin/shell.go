// Package admin holds the server-side state of an admin session: the active
// tab, the open catalog form and the listing it refreshes.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/model"
)

// Tab is a section of the admin panel.
type Tab string

// Tabs, in navigation order.
const (
	TabDashboard  Tab = "dashboard"
	TabInventory  Tab = "inventario"
	TabCategories Tab = "categorie"
	TabPortfolio  Tab = "portfolio"
	TabMessages   Tab = "messaggi"
	TabSettings   Tab = "impostazioni"
)

// Tabs lists every tab in navigation order.
var Tabs = []Tab{TabDashboard, TabInventory, TabCategories, TabPortfolio, TabMessages, TabSettings}

// Label is the navigation label of the tab.
func (t Tab) Label() string {
	switch t {
	case TabDashboard:
		return "Dashboard"
	case TabInventory:
		return "Inventario"
	case TabCategories:
		return "Categorie"
	case TabPortfolio:
		return "Portfolio"
	case TabMessages:
		return "Messaggi"
	case TabSettings:
		return "Impostazioni"
	}
	return string(t)
}

// Kind returns the catalog a tab browses. Categories browse the inventory.
func (t Tab) Kind() (model.Kind, bool) {
	switch t {
	case TabInventory, TabCategories:
		return model.KindInventory, true
	case TabPortfolio:
		return model.KindPortfolio, true
	}
	return "", false
}

// ParseTab parses a tab name.
func ParseTab(s string) (Tab, bool) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Errors returned by Shell transitions.
var (
	ErrNotCatalogTab = errors.New("the active tab has no catalog")
	ErrNoForm        = errors.New("no form is open")
	ErrItemNotFound  = errors.New("item not found")
)

// Shell is the state machine of one admin session. The form is either
// closed (Idle) or open on a seed (Editing); a nil seed means a new item.
// Every transition is serialised by the shell's lock.
type Shell struct {
	svc   *catalog.Service
	prefs *Preferences

	mu       sync.Mutex
	tab      Tab
	form     *catalog.Form
	category string
	query    string
	listing  catalog.Listing
	notice   string
}

// NewShell creates a shell on the dashboard with the form closed.
func NewShell(svc *catalog.Service, prefs Prefs) *Shell {
	return &Shell{svc: svc, prefs: NewPreferences(prefs), tab: TabDashboard}
}

// View is a consistent snapshot of the shell for rendering.
type View struct {
	Tab      Tab
	Kind     model.Kind
	Form     *catalog.Form
	Category string
	Query    string
	Listing  catalog.Listing
	// Items is the listing with the search query applied.
	Items  []model.CatalogItem
	Notice string
	Prefs  Prefs
}

// Editing reports whether the form is open.
func (v View) Editing() bool {
	return v.Form != nil
}

// View returns a snapshot. The form in it is a copy.
func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, _ := s.tab.Kind()
	var form *catalog.Form
	if s.form != nil {
		f := *s.form
		form = &f
	}
	return View{
		Tab:      s.tab,
		Kind:     kind,
		Form:     form,
		Category: s.category,
		Query:    s.query,
		Listing:  s.listing,
		Items:    catalog.Filter(s.listing.Items, s.query),
		Notice:   s.notice,
		Prefs:    s.prefs.Get(),
	}
}

// Preferences returns the session's preferences for reading.
func (s *Shell) Preferences() *Preferences {
	return s.prefs
}

// ToggleDarkMode flips dark mode and returns the new preferences.
func (s *Shell) ToggleDarkMode() Prefs {
	return s.prefs.set(func(p *Prefs) { p.DarkMode = !p.DarkMode })
}

// ToggleSidebar flips the sidebar and returns the new preferences.
func (s *Shell) ToggleSidebar() Prefs {
	return s.prefs.set(func(p *Prefs) { p.SidebarOpen = !p.SidebarOpen })
}

// SwitchTab activates tab. An open form is discarded without confirmation,
// unsaved changes included. Catalog tabs are re-fetched.
func (s *Shell) SwitchTab(ctx context.Context, tab Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tab = tab
	s.form = nil
	s.query = ""
	s.category = ""
	s.notice = ""
	s.refetch(ctx)
}

// SelectCategory narrows the categories tab to one category ("" for all).
func (s *Shell) SelectCategory(ctx context.Context, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.category = category
	s.refetch(ctx)
}

// Search sets the search query. No fetch is issued.
func (s *Shell) Search(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
}

// Refresh re-fetches the current listing (the retry action).
func (s *Shell) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refetch(ctx)
}

// refetch reloads the listing of the active tab. Callers hold s.mu.
func (s *Shell) refetch(ctx context.Context) {
	kind, ok := s.tab.Kind()
	if !ok {
		s.listing = catalog.Listing{}
		return
	}
	category := ""
	if s.tab == TabCategories {
		category = s.category
	}
	s.listing = s.svc.Fetch(ctx, kind, category)
}

// OpenAdd moves Idle -> Editing(nil).
func (s *Shell) OpenAdd() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.tab.Kind()
	if !ok {
		return ErrNotCatalogTab
	}
	s.form = catalog.NewForm(kind, nil)
	if s.tab == TabCategories && model.ValidCategory(kind, s.category) {
		s.form.Fields.Category = s.category
	}
	s.notice = ""
	return nil
}

// OpenEdit moves Idle -> Editing(item) for an item of the current listing.
func (s *Shell) OpenEdit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.tab.Kind()
	if !ok {
		return ErrNotCatalogTab
	}
	item := s.find(id)
	if item == nil {
		return ErrItemNotFound
	}
	s.form = catalog.NewForm(kind, item)
	s.notice = ""
	return nil
}

// Form gives fn exclusive access to the open form, e.g. to apply field input
// or stage a file.
func (s *Shell) Form(fn func(*catalog.Form)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form == nil {
		return ErrNoForm
	}
	fn(s.form)
	return nil
}

// Cancel moves Editing -> Idle without writing anything.
func (s *Shell) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = nil
}

// Submit saves the open form. On success the form closes and the listing is
// re-fetched. On failure the form stays open with the error on it. A
// *catalog.CleanupError means the row was saved, so the form closes anyway.
func (s *Shell) Submit(ctx context.Context) (*model.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form == nil {
		return nil, ErrNoForm
	}

	item, err := s.svc.Submit(ctx, s.form)
	var cleanupErr *catalog.CleanupError
	if err != nil && !errors.As(err, &cleanupErr) {
		return nil, err
	}

	created := s.form.IsNew()
	s.form = nil
	s.refetch(ctx)
	if created {
		s.notice = fmt.Sprintf("%q aggiunto.", item.Title)
	} else {
		s.notice = fmt.Sprintf("%q salvato.", item.Title)
	}
	return item, err
}

// Delete removes an item of the current listing. Without confirmation it
// does nothing. The form state is not changed. The listing is re-fetched
// whenever the row was deleted, even if removing its image failed.
func (s *Shell) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return ErrItemNotFound
	}

	err := s.svc.Delete(ctx, item)
	var writeErr *catalog.WriteError
	if errors.As(err, &writeErr) {
		s.notice = ""
		return err
	}

	s.refetch(ctx)
	s.notice = fmt.Sprintf("%q eliminato.", item.Title)
	return err
}

// find looks id up in the current listing. Callers hold s.mu.
func (s *Shell) find(id string) *model.CatalogItem {
	for i := range s.listing.Items {
		if s.listing.Items[i].ID == id {
			item := s.listing.Items[i]
			return &item
		}
	}
	return nil
}
