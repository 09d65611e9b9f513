package relay

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kelindar/event"
	"github.com/littleburg/relay/internal/wire"
)

var (
	ErrTownNotFound        = errors.New("town not found")
	ErrBuildingUnavailable = errors.New("building unavailable")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Town is one registered session snapshot. A town exists in the registry if
// and only if its owning connection is live; removal happens only through
// RemoveOwnedBy on disconnect.
type Town struct {
	ID       string
	Name     string
	OwnerID  string
	PlayerID string

	State      wire.GameState
	LastUpdate time.Time
	CreatedAt  time.Time
}

// TownRegistry holds every registered town. Mutations arrive serialized
// through the message pump; the lock protects the HTTP readers.
type TownRegistry struct {
	mutex sync.RWMutex
	towns map[string]*Town

	bus *event.Dispatcher
}

func NewTownRegistry(bus *event.Dispatcher) *TownRegistry {
	return &TownRegistry{
		towns: make(map[string]*Town),
		bus:   bus,
	}
}

// newTownID combines unix-millis with a random suffix so that ids stay
// pairwise distinct even under concurrent creation.
func newTownID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("town-%d-%s", time.Now().UnixMilli(), suffix)
}

// Create always succeeds. Town names are not unique.
func (reg *TownRegistry) Create(ownerID, playerID, name string, state wire.GameState) *Town {
	now := time.Now().In(time.UTC)
	town := &Town{
		ID:         newTownID(),
		Name:       name,
		OwnerID:    ownerID,
		PlayerID:   playerID,
		State:      state,
		LastUpdate: now,
		CreatedAt:  now,
	}

	reg.mutex.Lock()
	reg.towns[town.ID] = town
	reg.mutex.Unlock()

	reg.publish(TownEvent{Kind: EventTownCreated, TownID: town.ID, TownName: town.Name, OwnerID: ownerID, CreatedAt: now})
	return town
}

// UpdateState replaces the stored snapshot. It reports false without
// mutating anything when the caller does not own the town.
func (reg *TownRegistry) UpdateState(townID, callerID string, state wire.GameState) bool {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	town, ok := reg.towns[townID]
	if !ok || town.OwnerID != callerID {
		return false
	}

	town.State = state
	town.LastUpdate = time.Now().In(time.UTC)
	return true
}

func (reg *TownRegistry) Get(townID string) (*Town, bool) {
	reg.mutex.RLock()
	town, ok := reg.towns[townID]
	reg.mutex.RUnlock()
	return town, ok
}

func (reg *TownRegistry) Len() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return len(reg.towns)
}

// Summaries lists every town for the towns-list payload. Unbuilt buildings
// are not discoverable destinations and are left out.
func (reg *TownRegistry) Summaries() []wire.TownSummary {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	list := make([]wire.TownSummary, 0, len(reg.towns))
	for _, town := range reg.towns {
		built := make([]wire.BuildingRef, 0, len(town.State.Buildings))
		for _, b := range town.State.Buildings {
			if !b.IsBuilt {
				continue
			}
			built = append(built, wire.BuildingRef{ID: b.ID, Name: b.Name})
		}
		list = append(list, wire.TownSummary{
			TownID:         town.ID,
			TownName:       town.Name,
			OwnerID:        town.OwnerID,
			CharacterCount: len(town.State.Characters),
			BuiltBuildings: built,
		})
	}
	return list
}

// ProjectUpdate builds the reduced game-update view for one town. Fields
// outside the view structs are never sent to peers.
func (reg *TownRegistry) ProjectUpdate(townID string) (wire.TownUpdate, bool) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	town, ok := reg.towns[townID]
	if !ok {
		return wire.TownUpdate{}, false
	}

	update := wire.TownUpdate{
		TownID:     town.ID,
		TownName:   town.Name,
		Characters: make([]wire.CharacterView, 0, len(town.State.Characters)),
		Buildings:  make([]wire.BuildingView, 0, len(town.State.Buildings)),
	}
	for _, c := range town.State.Characters {
		update.Characters = append(update.Characters, wire.CharacterView{
			Name:          c.Name,
			CurrentTown:   c.CurrentTown,
			CurrentAction: c.CurrentAction,
			Money:         c.Money,
			Happiness:     c.Happiness,
		})
	}
	for _, b := range town.State.Buildings {
		update.Buildings = append(update.Buildings, wire.BuildingView{
			ID:           b.ID,
			Name:         b.Name,
			IsBuilt:      b.IsBuilt,
			TotalRevenue: b.TotalRevenue,
		})
	}
	return update, true
}

// RemoveOwnedBy removes every town owned by the connection and returns the
// removed records. This is the only removal path.
func (reg *TownRegistry) RemoveOwnedBy(ownerID string) []*Town {
	reg.mutex.Lock()
	var removed []*Town
	for id, town := range reg.towns {
		if town.OwnerID != ownerID {
			continue
		}
		delete(reg.towns, id)
		removed = append(removed, town)
	}
	reg.mutex.Unlock()

	for _, town := range removed {
		reg.publish(TownEvent{Kind: EventTownRemoved, TownID: town.ID, TownName: town.Name, OwnerID: ownerID, CreatedAt: town.CreatedAt})
	}
	return removed
}

func (reg *TownRegistry) publish(ev TownEvent) {
	if reg.bus == nil {
		return
	}
	event.Publish(reg.bus, ev)
}
