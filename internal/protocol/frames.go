package protocol

// Wire frames for the read-only observer stream.

// WELCOME (server -> observer)
type WelcomeFrame struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	TickDurationMs  int               `json:"tick_duration_ms"`
	Tick            uint64            `json:"tick"`
	CatalogDigests  map[string]string `json:"catalog_digests,omitempty"`
}

// EVENT (server -> observer). Data holds one of the event structs above,
// discriminated by Kind.
type EventFrame struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

const (
	Version     = "1.0"
	TypeWelcome = "WELCOME"
	TypeEvent   = "EVENT"
)
