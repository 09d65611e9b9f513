package wire

type EventType uint

const (
	_ EventType = iota
	Hello
	Welcome
	CreateTown
	TownCreated
	JoinGame
	RequestTowns
	TownsList
	UpdateState
	GameUpdate
	CharacterTravel
	CharacterArrived
	CharacterLeft
	CrossTownConsume
	CrossTownRevenue
	CharacterConsumed
	TownRemoved
	Error
)

func (e EventType) String() string {
	switch e {
	case Hello:
		return "hello"
	case Welcome:
		return "welcome"
	case CreateTown:
		return "create-town"
	case TownCreated:
		return "town-created"
	case JoinGame:
		return "join-game"
	case RequestTowns:
		return "request-towns"
	case TownsList:
		return "towns-list"
	case UpdateState:
		return "update-state"
	case GameUpdate:
		return "game-update"
	case CharacterTravel:
		return "character-travel"
	case CharacterArrived:
		return "character-arrived"
	case CharacterLeft:
		return "character-left"
	case CrossTownConsume:
		return "cross-town-consume"
	case CrossTownRevenue:
		return "cross-town-revenue"
	case CharacterConsumed:
		return "character-consumed"
	case TownRemoved:
		return "town-removed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
