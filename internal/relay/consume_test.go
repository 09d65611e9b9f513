package relay

import (
	"math"
	"testing"

	"github.com/littleburg/relay/internal/wire"
	"github.com/stretchr/testify/require"
)

func consumeFixture(t *testing.T, staff []string) (*TownRegistry, *Town, *Town) {
	t.Helper()

	reg := NewTownRegistry(nil)
	from := reg.Create("conn-1", "p1", "Alder", wire.GameState{
		Characters: []wire.Character{{Name: "Kai"}},
	})
	to := reg.Create("conn-2", "p2", "Birch", wire.GameState{
		Buildings: []wire.Building{
			{ID: "b1", Name: "Bakery", IsBuilt: true, Staff: staff},
			{ID: "b2", Name: "Forge", IsBuilt: false},
		},
	})
	return reg, from, to
}

func TestConsumeWithoutStaffCreditsTreasury(t *testing.T) {
	reg, from, to := consumeFixture(t, nil)

	res, err := reg.Consume(wire.ConsumeRequest{
		CharacterName: "Kai",
		FromTownID:    from.ID,
		ToTownID:      to.ID,
		BuildingID:    "b1",
		Amount:        50,
	})
	require.NoError(t, err)

	require.Equal(t, "conn-2", res.ToOwnerID)
	require.Equal(t, wire.Revenue{CharacterName: "Kai", FromTown: "Alder", BuildingID: "b1", BuildingName: "Bakery", Amount: 50}, res.Revenue)
	require.Equal(t, wire.Consumption{CharacterName: "Kai", ToTown: "Birch", BuildingName: "Bakery", Amount: 50}, res.Consumption)

	dest, _ := reg.Get(to.ID)
	require.Equal(t, 50.0, dest.State.Buildings[0].TotalRevenue)
	require.Equal(t, 50.0, dest.State.Treasury)

	// Source town state is untouched.
	src, _ := reg.Get(from.ID)
	require.Equal(t, 0.0, src.State.Treasury)
}

func TestConsumeWithStaffSkipsTreasury(t *testing.T) {
	reg, from, to := consumeFixture(t, []string{"Noa"})

	_, err := reg.Consume(wire.ConsumeRequest{CharacterName: "Kai", FromTownID: from.ID, ToTownID: to.ID, BuildingID: "b1", Amount: 20})
	require.NoError(t, err)

	dest, _ := reg.Get(to.ID)
	require.Equal(t, 20.0, dest.State.Buildings[0].TotalRevenue)
	// Staff distribution belongs to the owner's simulation.
	require.Equal(t, 0.0, dest.State.Treasury)
}

func TestConsumeBuildingUnavailable(t *testing.T) {
	reg, from, to := consumeFixture(t, nil)

	for _, buildingID := range []string{"b2", "b9"} {
		_, err := reg.Consume(wire.ConsumeRequest{CharacterName: "Kai", FromTownID: from.ID, ToTownID: to.ID, BuildingID: buildingID, Amount: 50})
		require.ErrorIs(t, err, ErrBuildingUnavailable)
	}

	dest, _ := reg.Get(to.ID)
	require.Equal(t, 0.0, dest.State.Treasury)
	require.Equal(t, 0.0, dest.State.Buildings[0].TotalRevenue)
	require.Equal(t, 0.0, dest.State.Buildings[1].TotalRevenue)
}

func TestConsumeTownNotFound(t *testing.T) {
	reg, from, _ := consumeFixture(t, nil)

	_, err := reg.Consume(wire.ConsumeRequest{CharacterName: "Kai", FromTownID: from.ID, ToTownID: "town-missing", BuildingID: "b1", Amount: 50})
	require.ErrorIs(t, err, ErrTownNotFound)
}

func TestConsumeRejectsInvalidAmount(t *testing.T) {
	reg, from, to := consumeFixture(t, nil)

	for _, amount := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := reg.Consume(wire.ConsumeRequest{CharacterName: "Kai", FromTownID: from.ID, ToTownID: to.ID, BuildingID: "b1", Amount: amount})
		require.ErrorIs(t, err, ErrInvalidAmount)
	}

	dest, _ := reg.Get(to.ID)
	require.Equal(t, 0.0, dest.State.Buildings[0].TotalRevenue)
	require.Equal(t, 0.0, dest.State.Treasury)
}
