package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// KeepAlive is how often an idle stream sends a comment line, so proxies
// do not close it.
var KeepAlive = 25 * time.Second

// StreamHandler serves changes of table/event as server-sent events. Each
// change is sent as an event named after the lowercased event type with the
// JSON Change as data. The subscription is closed when the client goes away.
func StreamHandler(hub Hub, table string, event Event) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)

		sub, err := hub.Subscribe(r.Context(), table, event)
		if err != nil {
			slog.Error("subscribing to changes", "table", table, "error", err)
			http.Error(w, "realtime unavailable", http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		// Streams outlive the server's write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		if err := rc.Flush(); err != nil {
			slog.Warn("streaming not supported", "error", err)
			return
		}

		ticker := time.NewTicker(KeepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-sub.Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			case c, ok := <-sub.C():
				if !ok {
					return
				}
				data, err := json.Marshal(c)
				if err != nil {
					slog.Error("encoding change", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", strings.ToLower(string(c.Event)), data)
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	})
}
