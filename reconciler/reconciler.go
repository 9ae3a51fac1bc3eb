package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discord-server-status/metrics"
	"discord-server-status/queues"
	"discord-server-status/status"

	"github.com/rs/zerolog/log"
)

// Reconciler keeps exactly one live status message in a channel. It holds
// no lock: callers must not run Reconcile concurrently with itself.
type Reconciler struct {
	client    Client
	channelID string
	publisher queues.Publisher
	now       func() time.Time

	targetID string
}

// New returns a reconciler with no target message. publisher may be nil.
func New(client Client, channelID string, publisher queues.Publisher) *Reconciler {
	return &Reconciler{client: client, channelID: channelID, publisher: publisher, now: time.Now}
}

// TargetID returns the id of the live status message, or "" when none.
func (r *Reconciler) TargetID() string {
	return r.targetID
}

// Reconcile makes the live message reflect a freshly produced payload,
// editing it in place when possible and posting a new one otherwise.
func (r *Reconciler) Reconcile(ctx context.Context, src PayloadSource) error {
	ch, err := r.client.Channel(ctx, r.channelID)
	if err != nil {
		metrics.MessageUpdatesTotal.WithLabelValues(metrics.ActionChannelNotFound).Inc()
		return fmt.Errorf("reconciler: resolve channel %s: %w", r.channelID, err)
	}

	payload, err := src.Payload(ctx)
	if err != nil {
		return fmt.Errorf("reconciler: render payload: %w", err)
	}

	previous := r.targetID
	if previous != "" {
		err := r.edit(ctx, ch, previous, payload)
		if err == nil {
			metrics.MessageUpdatesTotal.WithLabelValues(metrics.ActionEdited).Inc()
			log.Debug().Str("channelId", ch.ID()).Str("messageId", previous).Msg("reconciler: status message edited")
			return nil
		}
		metrics.MessageUpdatesTotal.WithLabelValues(metrics.ActionEditFailed).Inc()
		log.Warn().Err(err).Str("channelId", ch.ID()).Str("messageId", previous).Msg("reconciler: failed to fetch or edit status message; recreating")
		r.targetID = ""
	}

	id, err := ch.Send(ctx, payload)
	if err != nil {
		metrics.MessageUpdatesTotal.WithLabelValues(metrics.ActionSendFailed).Inc()
		return fmt.Errorf("reconciler: send status message: %w", err)
	}
	if id == "" {
		metrics.MessageUpdatesTotal.WithLabelValues(metrics.ActionSendFailed).Inc()
		return errors.New("reconciler: send returned an empty message id")
	}
	r.targetID = id
	metrics.MessageUpdatesTotal.WithLabelValues(metrics.ActionCreated).Inc()
	log.Info().Str("channelId", ch.ID()).Str("messageId", id).Str("previousMessageId", previous).Msg("reconciler: status message posted")

	r.announce(ctx, ch.ID(), id, previous)
	return nil
}

func (r *Reconciler) edit(ctx context.Context, ch Channel, messageID string, p status.Payload) error {
	if err := ch.Fetch(ctx, messageID); err != nil {
		return fmt.Errorf("fetch %s: %w", messageID, err)
	}
	if err := ch.Edit(ctx, messageID, p); err != nil {
		return fmt.Errorf("edit %s: %w", messageID, err)
	}
	return nil
}

// announce publishes a status event for a newly posted message. Failures
// are logged only.
func (r *Reconciler) announce(ctx context.Context, channelID, messageID, previous string) {
	if r.publisher == nil {
		return
	}
	ev := &queues.StatusEvent{
		EnvelopeVersion: queues.EnvelopeVersion,
		Type:            queues.TypeStatusMessage,
		Action:          queues.ActionCreated,
		ChannelID:       channelID,
		MessageID:       messageID,
		At:              r.now().UTC(),
	}
	if previous != "" {
		ev.Action = queues.ActionRecreated
		ev.PreviousMessageID = &previous
	}
	if err := r.publisher.PublishEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("channelId", channelID).Str("messageId", messageID).Msg("reconciler: failed to publish status event")
	}
}
