package admin

import "sync"

// Prefs is a snapshot of the UI preferences.
type Prefs struct {
	DarkMode    bool `json:"dark_mode" schema:"dark_mode"`
	SidebarOpen bool `json:"sidebar_open" schema:"sidebar_open"`
}

// DefaultPrefs are used for a new session.
var DefaultPrefs = Prefs{DarkMode: true, SidebarOpen: true}

// Preferences holds the UI preferences of one session. The Shell that owns
// it is the only writer; readers take snapshots.
type Preferences struct {
	mu    sync.RWMutex
	prefs Prefs
}

// NewPreferences creates a Preferences holding p.
func NewPreferences(p Prefs) *Preferences {
	return &Preferences{prefs: p}
}

// Get returns a snapshot.
func (p *Preferences) Get() Prefs {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs
}

func (p *Preferences) set(fn func(*Prefs)) Prefs {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.prefs)
	return p.prefs
}
