package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
)

const SupportedSubProtocol = "littleburg-relay"

// Connect dials the relay, retrying with exponential backoff, and performs
// the hello/welcome handshake before returning the connection.
func Connect(ctx context.Context, wsURL string, player Player) (*websocket.Conn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	v := u.Query()
	v.Set("playerID", player.PlayerID)
	u.RawQuery = v.Encode()

	slog.Debug("Connecting to the relay server", "playerID", player.PlayerID, "url", u.String())

	var ws *websocket.Conn
	dial := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		conn, _, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{
			Subprotocols: []string{SupportedSubProtocol},
		})
		if err != nil {
			return err
		}
		ws = conn
		return nil
	}
	if err := backoff.Retry(dial, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Introduce the player.
	if err := ws.Write(ctx, websocket.MessageText, ComposeTyped(Hello, MessageContent[Player]{From: player.PlayerID, Content: player})); err != nil {
		return nil, err
	}

	// Expect to receive the welcome message.
	_, p, err := ws.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(p) != 1 || EventType(p[0]) != Welcome {
		return nil, fmt.Errorf("expected welcome message, got: %s", string(p))
	}

	return ws, nil
}

var _ WebSocketWriter = (*websocket.Conn)(nil)

type WebSocketWriter interface {
	Write(ctx context.Context, messageType websocket.MessageType, payload []byte) error
}

func Write(ctx context.Context, wsConn WebSocketWriter, payload []byte) error {
	return wsConn.Write(ctx, websocket.MessageText, payload)
}
