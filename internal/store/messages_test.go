package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
)

func TestMessages(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, err := InsertMessage(ctx, database, model.ContactMessage{
		Name:      "Mario",
		Email:     "mario@example.com",
		EventType: "concerto",
		Message:   "Serve un impianto per 500 persone",
	})
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if m.ID == "" || m.IsRead {
		t.Errorf("unexpected inserted message: %+v", m)
	}

	unread, err := CountUnreadMessages(ctx, database)
	if err != nil {
		t.Fatalf("CountUnreadMessages: %v", err)
	}
	if unread != 1 {
		t.Errorf("expected 1 unread, got %d", unread)
	}

	if err := MarkMessageRead(ctx, database, m.ID); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}

	messages, err := ListMessages(ctx, database)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 || !messages[0].IsRead {
		t.Errorf("expected one read message, got %+v", messages)
	}
	if messages[0].EventType != "concerto" {
		t.Errorf("expected event type 'concerto', got %q", messages[0].EventType)
	}

	if err := DeleteMessage(ctx, database, m.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := MarkMessageRead(ctx, database, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
