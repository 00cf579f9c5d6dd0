package model

import "time"

// ContactMessage is a request sent through the public contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	EventType string    `json:"event_type,omitempty"`
	Date      string    `json:"date,omitempty"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanySettings is the company profile edited under Impostazioni.
type CompanySettings struct {
	CompanyName        string            `json:"company_name" schema:"company_name"`
	Address            string            `json:"address" schema:"address"`
	VATNumber          string            `json:"vat_number" schema:"vat_number"`
	Phone              string            `json:"phone" schema:"phone"`
	Email              string            `json:"email" schema:"email"`
	WorkingHours       map[string]string `json:"working_hours" schema:"-"`
	BillingPreferences string            `json:"billing_preferences" schema:"billing_preferences"`
	CompanyLogo        string            `json:"company_logo" schema:"company_logo"`
	UpdatedAt          time.Time         `json:"updated_at" schema:"-"`
}

// SystemSettings holds notification and integration switches.
type SystemSettings struct {
	NotificationsEmail bool            `json:"notifications_email" schema:"notifications_email" default:"true"`
	NotificationsPush  bool            `json:"notifications_push" schema:"notifications_push"`
	BackupFrequency    string          `json:"backup_frequency" schema:"backup_frequency" default:"daily"`
	GDPRCompliance     bool            `json:"gdpr_compliance" schema:"gdpr_compliance" default:"true"`
	Integrations       map[string]bool `json:"integrations" schema:"-"`
	UpdatedAt          time.Time       `json:"updated_at" schema:"-"`
}

// Backup frequencies accepted by SystemSettings.
var BackupFrequencies = []string{"daily", "weekly", "monthly"}

// DashboardStats are the figures shown on the dashboard cards.
type DashboardStats struct {
	PortfolioCount       int `json:"portfolio_count"`
	InventoryCount       int `json:"inventory_count"`
	CategoriesCount      int `json:"categories_count"`
	TotalInventoryPieces int `json:"total_inventory_pieces"`
}
