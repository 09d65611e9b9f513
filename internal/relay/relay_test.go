package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/littleburg/relay/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent drains frames until one of the wanted type arrives. Broadcasts
// from other connections interleave freely with the targeted replies, so the
// tests never assume frame ordering across event types.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, want wire.EventType) []byte {
	t.Helper()
	for {
		_, p, err := conn.Read(ctx)
		require.NoError(t, err)
		if wire.ParseEventType(p) == want {
			return p
		}
	}
}

func createTown(ctx context.Context, t *testing.T, conn *websocket.Conn, req wire.CreateTownRequest) string {
	t.Helper()

	err := wire.Write(ctx, conn, wire.ComposeTyped(wire.CreateTown, wire.MessageContent[wire.CreateTownRequest]{
		From:    req.PlayerID,
		Content: req,
	}))
	require.NoError(t, err)

	_, m, err := wire.DecodeTyped[wire.TownRef](readEvent(ctx, t, conn, wire.TownCreated))
	require.NoError(t, err)
	require.NotEmpty(t, m.Content.TownID)
	return m.Content.TownID
}

func TestRelayEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	r := NewRelay()
	ts := httptest.NewServer(r.HttpRouter())
	defer ts.Close()
	go r.Multiplayer.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn1, err := wire.Connect(ctx, wsURL, wire.Player{PlayerID: "p1", Name: "Anna"})
	require.NoError(t, err)
	conn2, err := wire.Connect(ctx, wsURL, wire.Player{PlayerID: "p2", Name: "Bert"})
	require.NoError(t, err)

	townA := createTown(ctx, t, conn1, wire.CreateTownRequest{
		TownName: "Alder",
		PlayerID: "p1",
		GameState: wire.GameState{
			Characters: []wire.Character{{Name: "Kai", Money: 120}},
		},
	})
	townB := createTown(ctx, t, conn2, wire.CreateTownRequest{
		TownName: "Birch",
		PlayerID: "p2",
		GameState: wire.GameState{
			Buildings: []wire.Building{{ID: "b1", Name: "Bakery", IsBuilt: true}},
		},
	})

	// Kai walks into the Birch bakery and spends 50. The destination owner
	// learns about the revenue, the source owner about the spending.
	err = wire.Write(ctx, conn1, wire.ComposeTyped(wire.CrossTownConsume, wire.MessageContent[wire.ConsumeRequest]{
		From: "p1",
		Content: wire.ConsumeRequest{
			CharacterName: "Kai",
			FromTownID:    townA,
			ToTownID:      townB,
			BuildingID:    "b1",
			Amount:        50,
		},
	}))
	require.NoError(t, err)

	_, revenue, err := wire.DecodeTyped[wire.Revenue](readEvent(ctx, t, conn2, wire.CrossTownRevenue))
	require.NoError(t, err)
	assert.Equal(t, wire.Revenue{CharacterName: "Kai", FromTown: "Alder", BuildingID: "b1", BuildingName: "Bakery", Amount: 50}, revenue.Content)

	_, consumed, err := wire.DecodeTyped[wire.Consumption](readEvent(ctx, t, conn1, wire.CharacterConsumed))
	require.NoError(t, err)
	assert.Equal(t, wire.Consumption{CharacterName: "Kai", ToTown: "Birch", BuildingName: "Bakery", Amount: 50}, consumed.Content)

	town, found := r.Multiplayer.Towns.Get(townB)
	require.True(t, found)
	assert.Equal(t, 50.0, town.State.Treasury)
	assert.Equal(t, 50.0, town.State.Buildings[0].TotalRevenue)

	// The health endpoint reflects the registry.
	resp, err := ts.Client().Get(ts.URL + "/_health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
		Towns  int    `json:"towns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Towns)

	// Dropping the first connection purges its town and notifies the
	// remaining player.
	require.NoError(t, conn1.Close(websocket.StatusNormalClosure, "bye"))

	_, removed, err := wire.DecodeTyped[wire.TownRef](readEvent(ctx, t, conn2, wire.TownRemoved))
	require.NoError(t, err)
	assert.Equal(t, townA, removed.Content.TownID)

	_, found = r.Multiplayer.Towns.Get(townA)
	assert.False(t, found)

	require.NoError(t, conn2.Close(websocket.StatusNormalClosure, "bye"))
	time.Sleep(50 * time.Millisecond)
}

func TestWebSocketRejectsMissingSubprotocol(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r := NewRelay()
	defer r.Multiplayer.Reset()
	ts := httptest.NewServer(r.HttpRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestConfigListenAddr(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, ":3000", config.ListenAddr())

	config.Host = "127.0.0.1"
	config.Port = 4000
	assert.Equal(t, "127.0.0.1:4000", config.ListenAddr())

	config.BindAddr = "0.0.0.0:5000"
	assert.Equal(t, "0.0.0.0:5000", config.ListenAddr())
}
