package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestStreamHandler(t *testing.T) {
	c := qt.New(t)
	hub := NewLocalHub()
	srv := httptest.NewServer(StreamHandler(hub, "contact_messages", EventInsert))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	c.Assert(err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.Header.Get("Content-Type"), qt.Equals, "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	c.Assert(lines.Scan(), qt.IsTrue)
	c.Assert(lines.Text(), qt.Equals, ": connected")
	c.Assert(hub.Subscribers("contact_messages"), qt.Equals, 1)

	change, err := NewChange("contact_messages", EventInsert, map[string]string{"name": "Giulia"})
	c.Assert(err, qt.IsNil)
	c.Assert(hub.Publish(ctx, change), qt.IsNil)

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	c.Assert(event, qt.Equals, "insert")

	var got Change
	c.Assert(json.Unmarshal([]byte(data), &got), qt.IsNil)
	c.Assert(got.Table, qt.Equals, "contact_messages")
	c.Assert(string(got.Record), qt.JSONEquals, map[string]string{"name": "Giulia"})

	resp.Body.Close()
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("contact_messages") != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.Assert(hub.Subscribers("contact_messages"), qt.Equals, 0)
}
