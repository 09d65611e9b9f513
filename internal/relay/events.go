package relay

import (
	"log/slog"
	"time"

	"github.com/kelindar/event"
	"github.com/littleburg/relay/internal/app/logger/logging"
	"github.com/littleburg/relay/internal/metrics"
)

// Registry lifecycle events published on the internal bus. Observers only;
// the broadcast fan-out stays synchronous in the message pump.
const (
	EventTownCreated uint32 = iota + 1
	EventTownRemoved
)

type TownEvent struct {
	Kind      uint32
	TownID    string
	TownName  string
	OwnerID   string
	CreatedAt time.Time
}

func (e TownEvent) Type() uint32 { return e.Kind }

// subscribeObservers wires the metrics and logging observers to the bus.
// The returned cancel funcs must be called before closing the dispatcher.
func subscribeObservers(bus *event.Dispatcher) []func() {
	return []func(){
		event.SubscribeTo(bus, EventTownCreated, func(e TownEvent) {
			metrics.RegisteredTowns.Inc()
			slog.Info("Town registered", logging.TownID(e.TownID), "name", e.TownName, logging.SessionID(e.OwnerID))
		}),
		event.SubscribeTo(bus, EventTownRemoved, func(e TownEvent) {
			metrics.RegisteredTowns.Dec()
			metrics.TownLifetime.Observe(time.Since(e.CreatedAt).Seconds())
			slog.Info("Town removed", logging.TownID(e.TownID), "name", e.TownName, logging.SessionID(e.OwnerID))
		}),
	}
}
