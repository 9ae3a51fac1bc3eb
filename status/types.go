package status

import "time"

// Layer identifies a Squad layer. LayerID keys the map image.
type Layer struct {
	Name    string `json:"name"`
	LayerID string `json:"layerId,omitempty"`
}

// Snapshot is a momentary read of server telemetry used for exactly one render.
type Snapshot struct {
	ServerName         string
	PlayerCount        int
	PublicSlots        int
	ReserveSlots       int
	PublicQueue        int
	ReserveQueue       int
	CurrentLayer       *Layer
	NextLayer          *Layer
	NextLayerToBeVoted bool
}

// Field is one embed field.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Payload is the rendered status message. It is built fresh on every tick
// and must not be mutated once returned from Render.
type Payload struct {
	Title     string
	Fields    []Field
	Color     RGB
	Footer    string
	Timestamp time.Time
	// ImageURL is nil when no current layer image is known.
	ImageURL *string
}
