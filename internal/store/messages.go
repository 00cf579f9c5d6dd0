package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

// MessagesTable is the table contact messages are stored in.
const MessagesTable = "contact_messages"

const messageColumns = `id, name, email, phone, event_type, event_date, message, is_read, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.ContactMessage, error) {
	m := &model.ContactMessage{}
	var phone, eventType, eventDate sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &phone, &eventType, &eventDate, &m.Message, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Phone = phone.String
	m.EventType = eventType.String
	m.Date = eventDate.String
	return m, nil
}

// InsertMessage stores a contact request and returns it with its ID set.
func InsertMessage(ctx context.Context, db *db.DB, m model.ContactMessage) (*model.ContactMessage, error) {
	m.ID = uuid.NewString()
	m.IsRead = false
	m.CreatedAt = time.Now().UTC()

	_, err := db.ExecContext(ctx,
		`INSERT INTO contact_messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Phone, m.EventType, m.Date, m.Message, m.IsRead, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return &m, nil
}

// ListMessages returns all contact messages, newest first.
func ListMessages(ctx context.Context, db *db.DB) ([]model.ContactMessage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM contact_messages ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ContactMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// CountUnreadMessages returns the number of messages not yet marked read.
func CountUnreadMessages(ctx context.Context, db *db.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contact_messages WHERE is_read = ?`, false,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return n, nil
}

// MarkMessageRead flags a message as read.
func MarkMessageRead(ctx context.Context, db *db.DB, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE contact_messages SET is_read = ? WHERE id = ?`, true, id,
	)
	if err != nil {
		return fmt.Errorf("marking message read: %w", err)
	}
	return checkAffected(result.RowsAffected())
}

// DeleteMessage removes a message.
func DeleteMessage(ctx context.Context, db *db.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return checkAffected(result.RowsAffected())
}
