package telemetry

import (
	"context"
	"errors"

	"discord-server-status/status"
)

// ErrNoSnapshot means the source has not observed the server yet.
var ErrNoSnapshot = errors.New("telemetry: no snapshot available yet")

// Source is the read side of game server telemetry.
type Source interface {
	Snapshot(ctx context.Context) (status.Snapshot, error)
	// CurrentMap is the map-query fallback used when Snapshot has no
	// current layer.
	CurrentMap(ctx context.Context) (string, error)
}
