package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/littleburg/relay/internal/app/logger/logging"
	"github.com/littleburg/relay/internal/wire"
)

// HandleWebSocket upgrades the connection and hands it to the session loop.
// The session id is assigned server-side; the client identifies its player
// in the hello handshake.
func (r *Relay) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		Subprotocols:   []string{wire.SupportedSubProtocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Could not accept the connection",
			logging.Error(err),
			"origin", req.Header.Get("Origin"))
		return
	}
	defer conn.CloseNow()

	if conn.Subprotocol() != wire.SupportedSubProtocol {
		_ = conn.Close(websocket.StatusPolicyViolation, "client must speak the right subprotocol")
		return
	}

	session := NewPlayerSession(uuid.NewString(), conn)
	if err := r.Multiplayer.HandleSession(req.Context(), session); err != nil {
		return
	}
}

// HandleHealth is the synchronous liveness endpoint.
func (r *Relay) HandleHealth(w http.ResponseWriter, req *http.Request) {
	renderJSON(w, req, map[string]any{
		"status":    "ok",
		"towns":     r.Multiplayer.Towns.Len(),
		"timestamp": time.Now().UnixMilli(),
	})
}

func renderJSON(w http.ResponseWriter, _ *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Could not render the JSON response", logging.Error(err))
	}
}
