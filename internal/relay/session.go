package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/littleburg/relay/internal/app/logger/logging"
	"github.com/littleburg/relay/internal/metrics"
	"github.com/littleburg/relay/internal/wire"
)

// PlayerSession is one live client connection. A session owns at most one
// town, recorded in TownID once create-town succeeds.
type PlayerSession struct {
	SessionID string `json:"sessionId"`
	TownID    string `json:"townId,omitempty"`

	ConnectedAt time.Time `json:"connectedAt,omitempty"`

	Websocket ConnReadWriter

	Player wire.Player
}

func NewPlayerSession(id string, conn ConnReadWriter) *PlayerSession {
	return &PlayerSession{
		SessionID:   id,
		ConnectedAt: time.Now().In(time.UTC),
		Websocket:   conn,
	}
}

func (ps *PlayerSession) ReadNext(ctx context.Context) ([]byte, error) {
	if ps.Websocket == nil {
		return nil, fmt.Errorf("not connected")
	}
	_, payload, err := ps.Websocket.Read(ctx)
	if err != nil {
		slog.Warn("Could not read the message", logging.Error(err), "closeError", websocket.CloseStatus(err))
		return nil, err
	}
	return payload, nil
}

// Send is best-effort. A failed write is logged and counted, never
// reported back to the code that committed the mutation.
func (ps *PlayerSession) Send(ctx context.Context, payload []byte) {
	if ps.Websocket == nil {
		slog.Debug("not connected", logging.SessionID(ps.SessionID))
		metrics.FailedMessageSends.WithLabelValues("not_connected").Inc()
		return
	}
	if len(payload) < 1 {
		slog.Debug("payload is too short", "length", len(payload))
		metrics.FailedMessageSends.WithLabelValues("payload_too_short").Inc()
		return
	}

	if err := wire.Write(ctx, ps.Websocket, payload); err != nil {
		slog.Warn("Could not send a WS message", "to", ps.SessionID, logging.Error(err))
		metrics.FailedMessageSends.WithLabelValues("write_error").Inc()
	} else {
		metrics.MessagesSent.Inc()
	}
}

func (ps *PlayerSession) SendMessage(ctx context.Context, msgType wire.EventType, msg wire.Message) {
	ps.Send(ctx, wire.Compose(msgType, msg))
}

var _ ConnReadWriter = (*websocket.Conn)(nil)

type ConnReadWriter interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	CloseNow() error
}
