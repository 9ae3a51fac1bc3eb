package queues

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discord-server-status/status"
)

const (
	EnvelopeVersion = "1.0"

	TypeServerSnapshot = "server-snapshot"
	TypeStatusMessage  = "status-message"
)

// SnapshotEnvelope is published by the game server side (RCON sidecar,
// log parser) every time it has fresh telemetry.
type SnapshotEnvelope struct {
	EnvelopeVersion    string        `json:"envelopeVersion"`
	Type               string        `json:"type"`
	ServerName         string        `json:"serverName"`
	PlayerCount        int           `json:"playerCount"`
	PublicSlots        int           `json:"publicSlots"`
	ReserveSlots       int           `json:"reserveSlots"`
	PublicQueue        int           `json:"publicQueue"`
	ReserveQueue       int           `json:"reserveQueue"`
	CurrentLayer       *status.Layer `json:"currentLayer,omitempty"`
	NextLayer          *status.Layer `json:"nextLayer,omitempty"`
	NextLayerToBeVoted bool          `json:"nextLayerToBeVoted,omitempty"`
	// CurrentMap is the RCON-reported layer, used when CurrentLayer is unset.
	CurrentMap string `json:"currentMap,omitempty"`
}

// Validate rejects envelopes that can never render.
func (e *SnapshotEnvelope) Validate() error {
	var errs []error
	if e.Type != "" && e.Type != TypeServerSnapshot {
		errs = append(errs, fmt.Errorf("unexpected type %q", e.Type))
	}
	if e.ServerName == "" {
		errs = append(errs, errors.New("serverName is required"))
	}
	for name, v := range map[string]int{
		"playerCount":  e.PlayerCount,
		"publicSlots":  e.PublicSlots,
		"reserveSlots": e.ReserveSlots,
		"publicQueue":  e.PublicQueue,
		"reserveQueue": e.ReserveQueue,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", name, v))
		}
	}
	return errors.Join(errs...)
}

func (e *SnapshotEnvelope) Snapshot() status.Snapshot {
	return status.Snapshot{
		ServerName:         e.ServerName,
		PlayerCount:        e.PlayerCount,
		PublicSlots:        e.PublicSlots,
		ReserveSlots:       e.ReserveSlots,
		PublicQueue:        e.PublicQueue,
		ReserveQueue:       e.ReserveQueue,
		CurrentLayer:       e.CurrentLayer,
		NextLayer:          e.NextLayer,
		NextLayerToBeVoted: e.NextLayerToBeVoted,
	}
}

type StatusAction string

const (
	ActionCreated   StatusAction = "created"
	ActionRecreated StatusAction = "recreated"
)

// StatusEvent announces that a new live status message was posted.
type StatusEvent struct {
	EnvelopeVersion   string       `json:"envelopeVersion"`
	Type              string       `json:"type"`
	Action            StatusAction `json:"action"`
	ChannelID         string       `json:"channelId"`
	MessageID         string       `json:"messageId"`
	PreviousMessageID *string      `json:"previousMessageId,omitempty"`
	At                time.Time    `json:"at"`
}

type Subscriber interface {
	Start(ctx context.Context, handler func(context.Context, *SnapshotEnvelope) error) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, ev *StatusEvent) error
}
