package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/kelindar/event"
	"github.com/littleburg/relay/internal/app/logger/logging"
	"github.com/littleburg/relay/internal/metrics"
	"github.com/littleburg/relay/internal/wire"
)

// envelope is one decoded-enough frame travelling through the pump: the
// originating session, the event type byte and the raw frame. Handlers
// decode the body with the payload type they expect.
type envelope struct {
	from    string
	event   wire.EventType
	payload []byte
}

// Multiplayer is the control plane for presence, the town registry and the
// cross-town protocol. All handler bodies run on the single Run goroutine,
// so registry mutations within one handler are atomic with respect to the
// others.
type Multiplayer struct {
	done context.CancelFunc

	// Connected clients
	sessionMutex sync.RWMutex
	sessions     map[string]*PlayerSession

	Messages chan envelope

	Towns *TownRegistry

	bus    *event.Dispatcher
	unsubs []func()
}

func NewMultiplayer() *Multiplayer {
	bus := event.NewDispatcher()
	mp := &Multiplayer{
		sessions: make(map[string]*PlayerSession),
		Messages: make(chan envelope),
		bus:      bus,
		unsubs:   subscribeObservers(bus),
	}
	mp.Towns = NewTownRegistry(bus)
	return mp
}

func (mp *Multiplayer) Stop() {
	if mp.done != nil {
		mp.done()
	}
}

func (mp *Multiplayer) Reset() {
	mp.forEachSession(func(session *PlayerSession) bool {
		_ = session.Websocket.CloseNow()
		return true
	})
	clear(mp.sessions)
	close(mp.Messages)

	for _, unsub := range mp.unsubs {
		unsub()
	}
	_ = mp.bus.Close()
}

func (mp *Multiplayer) Run(ctx context.Context) {
	ctx, done := context.WithCancel(ctx)
	mp.done = done
	defer done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Received signal, closing the relay")
			mp.Reset()
			return

		case env, ok := <-mp.Messages:
			if !ok {
				return
			}
			mp.HandleIncomingMessage(ctx, env)
		}
	}
}

// HandleIncomingMessage dispatches one frame based on its event type.
func (mp *Multiplayer) HandleIncomingMessage(ctx context.Context, env envelope) {
	metrics.MessagesReceived.Inc()

	session, ok := mp.GetSession(env.from)
	if !ok {
		return
	}

	slog.Debug("Received a relay message", "type", env.event.String(), "from", env.from)

	switch env.event {
	case wire.CreateTown:
		mp.HandleCreateTown(ctx, session, env.payload)
	case wire.JoinGame, wire.RequestTowns:
		mp.SendTownsList(ctx, session)
	case wire.UpdateState:
		mp.HandleUpdateState(ctx, session, env.payload)
	case wire.CharacterTravel:
		mp.HandleCharacterTravel(ctx, session, env.payload)
	case wire.CrossTownConsume:
		mp.HandleCrossTownConsume(ctx, session, env.payload)
	default:
		slog.Error("Unhandled event type", "type", env.event.String())
	}
}

func (mp *Multiplayer) HandleSession(ctx context.Context, session *PlayerSession) error {
	// Expect the "hello" and send back the "welcome" message.
	if err := mp.HandleHello(ctx, session); err != nil {
		return err
	}

	// Add the client to the list of connected players.
	mp.SetPlayerConnected(session)

	// Remove the player and purge the owned towns.
	defer mp.SetPlayerDisconnected(session)

	// Handle all the incoming messages.
	for {
		payload, err := session.ReadNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}

			switch state := websocket.CloseStatus(err); state {
			case -1:
				// connection reset by peer
				return nil
			case websocket.StatusNormalClosure:
				slog.Debug("Closing because of", logging.Error(err))
				return err
			default:
				slog.Error("Could not handle the message", logging.Error(err))
				return err
			}
		}

		mp.Messages <- envelope{
			from:    session.SessionID,
			event:   wire.ParseEventType(payload),
			payload: payload,
		}
	}
}

func (mp *Multiplayer) HandleHello(ctx context.Context, session *PlayerSession) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	payload, err := session.ReadNext(ctx)
	if err != nil {
		return err
	}
	et, m, err := wire.DecodeTyped[wire.Player](payload)
	if err != nil {
		return err
	}
	if et != wire.Hello {
		return errors.New("expected the hello event first")
	}

	session.Player = m.Content

	session.Send(ctx, []byte{byte(wire.Welcome)})
	return nil
}

func (mp *Multiplayer) HandleCreateTown(ctx context.Context, session *PlayerSession, payload []byte) {
	_, m, err := wire.DecodeTyped[wire.CreateTownRequest](payload)
	if err != nil {
		slog.Error("Could not decode the create-town payload", logging.Error(err))
		return
	}
	req := m.Content

	town := mp.Towns.Create(session.SessionID, req.PlayerID, req.TownName, req.GameState)
	session.TownID = town.ID

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	session.SendMessage(ctx, wire.TownCreated, wire.Message{
		To:      session.SessionID,
		Content: wire.TownRef{TownID: town.ID, TownName: town.Name},
	})
	mp.BroadcastTownsList(ctx)
}

func (mp *Multiplayer) HandleUpdateState(ctx context.Context, session *PlayerSession, payload []byte) {
	_, m, err := wire.DecodeTyped[wire.UpdateStateRequest](payload)
	if err != nil {
		slog.Error("Could not decode the update-state payload", logging.Error(err))
		return
	}
	req := m.Content

	// Non-owner updates are dropped without a report.
	if !mp.Towns.UpdateState(req.TownID, session.SessionID, req.GameState) {
		slog.Debug("Dropped a state update", logging.TownID(req.TownID), logging.SessionID(session.SessionID))
		metrics.RejectedStateUpdates.Inc()
		return
	}

	view, ok := mp.Towns.ProjectUpdate(req.TownID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	mp.BroadcastExcept(ctx, session.SessionID, wire.Compose(wire.GameUpdate, wire.Message{
		From:    session.SessionID,
		Content: view,
	}))
}

func (mp *Multiplayer) HandleCharacterTravel(ctx context.Context, session *PlayerSession, payload []byte) {
	_, m, err := wire.DecodeTyped[wire.TravelRequest](payload)
	if err != nil {
		slog.Error("Could not decode the character-travel payload", logging.Error(err))
		return
	}

	res, err := mp.Towns.MoveCharacter(m.Content)
	if err != nil {
		mp.SendError(ctx, session, err)
		return
	}
	if res == nil {
		// Unknown character name, deliberately silent.
		return
	}
	metrics.TravelEvents.Inc()

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if to, ok := mp.GetSession(res.ToOwnerID); ok {
		to.SendMessage(ctx, wire.CharacterArrived, wire.Message{To: res.ToOwnerID, Content: res.Arrival})
	}
	if from, ok := mp.GetSession(res.FromOwnerID); ok {
		from.SendMessage(ctx, wire.CharacterLeft, wire.Message{To: res.FromOwnerID, Content: res.Departure})
	}
}

func (mp *Multiplayer) HandleCrossTownConsume(ctx context.Context, session *PlayerSession, payload []byte) {
	_, m, err := wire.DecodeTyped[wire.ConsumeRequest](payload)
	if err != nil {
		slog.Error("Could not decode the cross-town-consume payload", logging.Error(err))
		return
	}

	res, err := mp.Towns.Consume(m.Content)
	if err != nil {
		mp.SendError(ctx, session, err)
		return
	}
	metrics.ConsumeEvents.Inc()

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if to, ok := mp.GetSession(res.ToOwnerID); ok {
		to.SendMessage(ctx, wire.CrossTownRevenue, wire.Message{To: res.ToOwnerID, Content: res.Revenue})
	}
	if from, ok := mp.GetSession(res.FromOwnerID); ok {
		from.SendMessage(ctx, wire.CharacterConsumed, wire.Message{To: res.FromOwnerID, Content: res.Consumption})
	}
}

// SendError reports a failed request back to the initiating connection only.
func (mp *Multiplayer) SendError(ctx context.Context, session *PlayerSession, err error) {
	metrics.RelayErrors.WithLabelValues(errorType(err)).Inc()
	session.SendMessage(ctx, wire.Error, wire.Message{
		To:      session.SessionID,
		Content: wire.ErrorMessage{Message: err.Error()},
	})
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrTownNotFound):
		return "town_not_found"
	case errors.Is(err, ErrBuildingUnavailable):
		return "building_unavailable"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "internal"
	}
}

func (mp *Multiplayer) SendTownsList(ctx context.Context, session *PlayerSession) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	session.SendMessage(ctx, wire.TownsList, wire.Message{
		To:      session.SessionID,
		Content: mp.Towns.Summaries(),
	})
}

func (mp *Multiplayer) BroadcastTownsList(ctx context.Context) {
	mp.Broadcast(ctx, wire.Compose(wire.TownsList, wire.Message{
		Content: mp.Towns.Summaries(),
	}))
}

// SetPlayerConnected notifies the client has connected to the relay.
func (mp *Multiplayer) SetPlayerConnected(session *PlayerSession) {
	mp.AddSession(session.SessionID, session)
	metrics.ConnectedClients.Inc()
}

// SetPlayerDisconnected purges the towns owned by the connection and
// redistributes the registry. Disconnect is immediately destructive, there
// is no reconnection window.
func (mp *Multiplayer) SetPlayerDisconnected(session *PlayerSession) {
	slog.Info("Closing player connection", logging.SessionID(session.SessionID))

	if err := session.Websocket.CloseNow(); err != nil {
		slog.Debug("Could not close the connection", logging.SessionID(session.SessionID), logging.Error(err))
	}

	mp.DeleteSession(session.SessionID)
	metrics.ConnectedClients.Dec()

	removed := mp.Towns.RemoveOwnedBy(session.SessionID)
	if len(removed) == 0 {
		return
	}

	ctx := context.Background()
	for _, town := range removed {
		mp.Broadcast(ctx, wire.Compose(wire.TownRemoved, wire.Message{
			Content: wire.TownRef{TownID: town.ID, TownName: town.Name},
		}))
	}
	mp.BroadcastTownsList(ctx)
}

// Broadcast sends a payload to every connected client.
func (mp *Multiplayer) Broadcast(ctx context.Context, payload []byte) {
	mp.forEachSession(func(session *PlayerSession) bool {
		session.Send(ctx, payload)
		return true
	})
}

// BroadcastExcept sends a payload to every connected client but the caller.
func (mp *Multiplayer) BroadcastExcept(ctx context.Context, exceptID string, payload []byte) {
	mp.forEachSession(func(session *PlayerSession) bool {
		if session.SessionID != exceptID {
			session.Send(ctx, payload)
		}
		return true
	})
}

// GetSession is a thread-safe method to receive a session by ID.
func (mp *Multiplayer) GetSession(id string) (*PlayerSession, bool) {
	mp.sessionMutex.RLock()
	session, ok := mp.sessions[id]
	mp.sessionMutex.RUnlock()
	return session, ok
}

// AddSession is a thread-safe operation to add a session identified by ID.
func (mp *Multiplayer) AddSession(id string, session *PlayerSession) {
	if _, exists := mp.GetSession(id); exists {
		return
	}
	mp.sessionMutex.Lock()
	mp.sessions[id] = session
	mp.sessionMutex.Unlock()
}

// DeleteSession is a thread-safe operation to delete a session by ID.
func (mp *Multiplayer) DeleteSession(id string) {
	mp.sessionMutex.Lock()
	delete(mp.sessions, id)
	mp.sessionMutex.Unlock()
}

// forEachSession is a thread-safe method to iterate over all session entries.
func (mp *Multiplayer) forEachSession(f func(session *PlayerSession) bool) {
	mp.sessionMutex.RLock()
	defer mp.sessionMutex.RUnlock()
	for _, session := range mp.sessions {
		if next := f(session); !next {
			return
		}
	}
}
