package action

var (
	// Relay server
	defaultRelayAddr = ""

	// CORS
	defaultCORSOrigin = "*"
)
