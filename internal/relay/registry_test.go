package relay

import (
	"sync"
	"testing"

	"github.com/littleburg/relay/internal/wire"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCreateTownIDsAreUnique(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := NewTownRegistry(nil)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	ids := make(chan string, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				town := reg.Create("owner", "player", "Mill Creek", wire.GameState{})
				ids <- town.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate town id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, workers*perWorker)
	require.Equal(t, workers*perWorker, reg.Len())
}

func TestUpdateStateOwnerOnly(t *testing.T) {
	reg := NewTownRegistry(nil)
	town := reg.Create("conn-1", "p1", "Alder", wire.GameState{Treasury: 10})
	before := town.LastUpdate

	ok := reg.UpdateState(town.ID, "conn-2", wire.GameState{Treasury: 999})
	require.False(t, ok)

	got, found := reg.Get(town.ID)
	require.True(t, found)
	require.Equal(t, 10.0, got.State.Treasury)
	require.Equal(t, before, got.LastUpdate)

	ok = reg.UpdateState(town.ID, "conn-1", wire.GameState{Treasury: 25})
	require.True(t, ok)
	got, _ = reg.Get(town.ID)
	require.Equal(t, 25.0, got.State.Treasury)
}

func TestUpdateStateUnknownTown(t *testing.T) {
	reg := NewTownRegistry(nil)
	require.False(t, reg.UpdateState("town-missing", "conn-1", wire.GameState{}))
}

func TestSummariesExcludeUnbuiltBuildings(t *testing.T) {
	reg := NewTownRegistry(nil)
	reg.Create("conn-1", "p1", "Alder", wire.GameState{
		Characters: []wire.Character{{Name: "Kai"}, {Name: "Noa"}},
		Buildings: []wire.Building{
			{ID: "b1", Name: "Bakery", IsBuilt: true},
			{ID: "b2", Name: "Forge", IsBuilt: false},
		},
	})

	summaries := reg.Summaries()
	require.Len(t, summaries, 1)
	require.Equal(t, "Alder", summaries[0].TownName)
	require.Equal(t, "conn-1", summaries[0].OwnerID)
	require.Equal(t, 2, summaries[0].CharacterCount)
	require.Equal(t, []wire.BuildingRef{{ID: "b1", Name: "Bakery"}}, summaries[0].BuiltBuildings)
}

func TestProjectUpdateHidesInternalFields(t *testing.T) {
	reg := NewTownRegistry(nil)
	town := reg.Create("conn-1", "p1", "Alder", wire.GameState{
		Characters: []wire.Character{{Name: "Kai", Money: 12, Happiness: 0.7, Hunger: 0.9, Energy: 0.1}},
		Buildings:  []wire.Building{{ID: "b1", Name: "Bakery", IsBuilt: true, Staff: []string{"Noa"}, Upkeep: 3}},
	})

	update, ok := reg.ProjectUpdate(town.ID)
	require.True(t, ok)
	require.Equal(t, town.ID, update.TownID)
	require.Equal(t, []wire.CharacterView{{Name: "Kai", Money: 12, Happiness: 0.7}}, update.Characters)
	require.Equal(t, []wire.BuildingView{{ID: "b1", Name: "Bakery", IsBuilt: true}}, update.Buildings)
}

func TestRemoveOwnedBy(t *testing.T) {
	reg := NewTownRegistry(nil)
	t1 := reg.Create("conn-1", "p1", "Alder", wire.GameState{})
	t2 := reg.Create("conn-1", "p1", "Birch", wire.GameState{})
	t3 := reg.Create("conn-2", "p2", "Cedar", wire.GameState{})

	removed := reg.RemoveOwnedBy("conn-1")
	require.Len(t, removed, 2)

	removedIDs := []string{removed[0].ID, removed[1].ID}
	require.ElementsMatch(t, []string{t1.ID, t2.ID}, removedIDs)

	_, found := reg.Get(t1.ID)
	require.False(t, found)
	_, found = reg.Get(t2.ID)
	require.False(t, found)
	_, found = reg.Get(t3.ID)
	require.True(t, found)

	// Second removal finds nothing to do.
	require.Empty(t, reg.RemoveOwnedBy("conn-1"))
}

func TestRemoveOwnedByWithoutTowns(t *testing.T) {
	reg := NewTownRegistry(nil)
	reg.Create("conn-1", "p1", "Alder", wire.GameState{})
	require.Empty(t, reg.RemoveOwnedBy("conn-9"))
	require.Equal(t, 1, reg.Len())
}
