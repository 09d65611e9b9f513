package wire

// Message is the envelope for every relay event.
type Message struct {
	To      string    `json:"to,omitempty"`
	From    string    `json:"from,omitempty"`
	Type    EventType `json:"type"`
	Content any       `json:"content"`
}

type MessageContent[T any] struct {
	From    string    `json:"from"`
	Type    EventType `json:"type"`
	Content T         `json:"content"`
	To      string    `json:"to,omitempty"`
}

func (m Message) Encode() []byte {
	out, err := DefaultCodec.Marshal(m)
	if err != nil {
		panic(err)
	}
	return out
}

// Player identifies the simulation client behind a connection. Sent as the
// hello payload before any other event.
type Player struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
}

// GameState is the owner-pushed snapshot of one town. The relay stores it
// as given and only ever reads or rewrites the fields below.
type GameState struct {
	Characters []Character `json:"characters"`
	Buildings  []Building  `json:"buildings"`
	Treasury   float64     `json:"treasury"`
}

// Character is owner-authoritative except for CurrentTown and CurrentAction,
// which the relay rewrites during travel. Name is the lookup key for the
// travel and consume operations.
type Character struct {
	Name          string  `json:"name"`
	CurrentTown   string  `json:"currentTown"`
	CurrentAction string  `json:"currentAction"`
	Money         float64 `json:"money"`
	Happiness     float64 `json:"happiness"`

	// Internal simulation fields. Stored for the owner, never projected
	// to other connections.
	Hunger float64 `json:"hunger,omitempty"`
	Energy float64 `json:"energy,omitempty"`
}

type Building struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	IsBuilt      bool     `json:"isBuilt"`
	Staff        []string `json:"staff,omitempty"`
	TotalRevenue float64  `json:"totalRevenue"`

	Upkeep float64 `json:"upkeep,omitempty"`
}

type CreateTownRequest struct {
	TownName  string    `json:"townName"`
	PlayerID  string    `json:"playerId"`
	GameState GameState `json:"gameState"`
}

type UpdateStateRequest struct {
	TownID    string    `json:"townId"`
	GameState GameState `json:"gameState"`
}

type TravelRequest struct {
	CharacterName string `json:"characterName"`
	FromTownID    string `json:"fromTownId"`
	ToTownID      string `json:"toTownId"`
}

type ConsumeRequest struct {
	CharacterName string  `json:"characterName"`
	FromTownID    string  `json:"fromTownId"`
	ToTownID      string  `json:"toTownId"`
	BuildingID    string  `json:"buildingId"`
	Amount        float64 `json:"amount"`
}

// CharacterView and BuildingView are the reduced projections broadcast to
// peers on a state update. Fields absent here are never leaked.
type CharacterView struct {
	Name          string  `json:"name"`
	CurrentTown   string  `json:"currentTown"`
	CurrentAction string  `json:"currentAction"`
	Money         float64 `json:"money"`
	Happiness     float64 `json:"happiness"`
}

type BuildingView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	IsBuilt      bool    `json:"isBuilt"`
	TotalRevenue float64 `json:"totalRevenue"`
}

type TownUpdate struct {
	TownID     string          `json:"townId"`
	TownName   string          `json:"townName"`
	Characters []CharacterView `json:"characters"`
	Buildings  []BuildingView  `json:"buildings"`
}

type BuildingRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TownSummary is one entry of the towns-list payload. Unbuilt buildings are
// excluded; they are not yet discoverable destinations.
type TownSummary struct {
	TownID         string        `json:"townId"`
	TownName       string        `json:"townName"`
	OwnerID        string        `json:"ownerId"`
	CharacterCount int           `json:"characterCount"`
	BuiltBuildings []BuildingRef `json:"builtBuildings"`
}

type TownRef struct {
	TownID   string `json:"townId"`
	TownName string `json:"townName,omitempty"`
}

// Arrival is sent to the destination owner after a travel.
type Arrival struct {
	Character Character `json:"character"`
	FromTown  string    `json:"fromTown"`
	ToTown    string    `json:"toTown"`
}

// Departure is sent to the source owner after a travel.
type Departure struct {
	CharacterName string `json:"characterName"`
	ToTown        string `json:"toTown"`
}

// Revenue is sent to the destination owner after a cross-town consumption.
type Revenue struct {
	CharacterName string  `json:"characterName"`
	FromTown      string  `json:"fromTown"`
	BuildingID    string  `json:"buildingId"`
	BuildingName  string  `json:"buildingName"`
	Amount        float64 `json:"amount"`
}

// Consumption is sent to the source owner after a cross-town consumption.
type Consumption struct {
	CharacterName string  `json:"characterName"`
	ToTown        string  `json:"toTown"`
	BuildingName  string  `json:"buildingName"`
	Amount        float64 `json:"amount"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
