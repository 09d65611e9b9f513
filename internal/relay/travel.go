package relay

import (
	"fmt"

	"github.com/littleburg/relay/internal/wire"
)

type travelResult struct {
	Arrival   wire.Arrival
	Departure wire.Departure

	FromOwnerID string
	ToOwnerID   string
}

// MoveCharacter relocates a character's location fields across towns. The
// character is looked up by exact name in the source roster and stays a
// member of it; only CurrentTown and CurrentAction change.
//
// A missing town is an error. An unmatched character name is a silent
// no-op (nil result, nil error) and must produce no notifications.
func (reg *TownRegistry) MoveCharacter(req wire.TravelRequest) (*travelResult, error) {
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

	for i := range from.State.Characters {
		character := &from.State.Characters[i]
		if character.Name != req.CharacterName {
			continue
		}

		character.CurrentTown = to.ID
		character.CurrentAction = fmt.Sprintf("traveling to %s", to.Name)

		return &travelResult{
			Arrival: wire.Arrival{
				Character: *character,
				FromTown:  from.Name,
				ToTown:    to.Name,
			},
			Departure: wire.Departure{
				CharacterName: character.Name,
				ToTown:        to.Name,
			},
			FromOwnerID: from.OwnerID,
			ToOwnerID:   to.OwnerID,
		}, nil
	}

	return nil, nil
}
