package presence

import (
	"context"
	"fmt"

	"discord-server-status/metrics"
	"discord-server-status/status"

	"github.com/rs/zerolog/log"
)

// Kind is the chat platform activity type.
type Kind int

// KindCustom is Discord's custom status activity.
const KindCustom Kind = 4

type Activity struct {
	Text string
	Kind Kind
}

// Setter pushes an activity to the bot's own presence.
type Setter interface {
	SetActivity(ctx context.Context, a Activity) error
}

// Updater mirrors the server summary into the bot presence.
type Updater struct {
	setter  Setter
	enabled bool
}

func New(setter Setter, enabled bool) *Updater {
	return &Updater{setter: setter, enabled: enabled}
}

func (u *Updater) Enabled() bool {
	return u.enabled
}

// Update sets the presence text for snap. It is a no-op when disabled.
func (u *Updater) Update(ctx context.Context, snap status.Snapshot) error {
	if !u.enabled {
		return nil
	}
	a := Activity{Text: status.PresenceText(snap), Kind: KindCustom}
	if err := u.setter.SetActivity(ctx, a); err != nil {
		metrics.PresenceUpdatesTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("presence: set activity: %w", err)
	}
	metrics.PresenceUpdatesTotal.WithLabelValues("success").Inc()
	log.Debug().Str("activity", a.Text).Msg("presence: activity updated")
	return nil
}
