package relay

import (
	"fmt"
	"math"

	"github.com/littleburg/relay/internal/wire"
)

type consumeResult struct {
	Revenue     wire.Revenue
	Consumption wire.Consumption

	FromOwnerID string
	ToOwnerID   string
}

// Consume credits a spend event to a building in the destination town.
// Revenue accumulates on the building; when the building has no staff the
// amount additionally goes to the town treasury (staff distribution is the
// owner's job). Nothing is mutated on failure.
func (reg *TownRegistry) Consume(req wire.ConsumeRequest) (*consumeResult, error) {
	if req.Amount < 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, req.Amount)
	}

	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	from, ok := reg.towns[req.FromTownID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTownNotFound, req.FromTownID)
	}
	to, ok := reg.towns[req.ToTownID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTownNotFound, req.ToTownID)
	}

	var building *wire.Building
	for i := range to.State.Buildings {
		if to.State.Buildings[i].ID == req.BuildingID {
			building = &to.State.Buildings[i]
			break
		}
	}
	if building == nil || !building.IsBuilt {
		return nil, fmt.Errorf("%w: %s", ErrBuildingUnavailable, req.BuildingID)
	}

	building.TotalRevenue += req.Amount
	if len(building.Staff) == 0 {
		to.State.Treasury += req.Amount
	}

	return &consumeResult{
		Revenue: wire.Revenue{
			CharacterName: req.CharacterName,
			FromTown:      from.Name,
			BuildingID:    building.ID,
			BuildingName:  building.Name,
			Amount:        req.Amount,
		},
		Consumption: wire.Consumption{
			CharacterName: req.CharacterName,
			ToTown:        to.Name,
			BuildingName:  building.Name,
			Amount:        req.Amount,
		},
		FromOwnerID: from.OwnerID,
		ToOwnerID:   to.OwnerID,
	}, nil
}
