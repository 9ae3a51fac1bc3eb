package pubsub

import (
	"context"
	"encoding/json"

	"discord-server-status/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type Publisher struct {
	projectID   string
	eventsTopic string
	credsFile   string
	client      *gpubsub.Client
	topic       *gpubsub.Topic
}

func NewPublisher(projectID, eventsTopic, credsFile string) *Publisher {
	return &Publisher{projectID: projectID, eventsTopic: eventsTopic, credsFile: credsFile}
}

func (p *Publisher) PublishEvent(ctx context.Context, ev *queues.StatusEvent) error {
	if p.client == nil {
		var (
			client *gpubsub.Client
			err    error
		)
		if p.credsFile != "" {
			log.Debug().Str("projectID", p.projectID).Str("topic", p.eventsTopic).Str("credsFile", p.credsFile).Msg("initializing pubsub publisher with explicit credentials")
			client, err = gpubsub.NewClient(ctx, p.projectID, option.WithCredentialsFile(p.credsFile))
		} else {
			log.Debug().Str("projectID", p.projectID).Str("topic", p.eventsTopic).Msg("initializing pubsub publisher with default credentials")
			client, err = gpubsub.NewClient(ctx, p.projectID)
		}
		if err != nil {
			log.Error().Err(err).Str("projectID", p.projectID).Str("topic", p.eventsTopic).Msg("failed to create pubsub client for publisher")
			return err
		}
		p.client = client
		p.topic = client.Topic(p.eventsTopic)
		log.Info().Str("topic", p.eventsTopic).Msg("pubsub publisher initialized")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Interface("event", ev).Msg("failed to marshal status event")
		return err
	}
	// Publish and wait for server ack
	r := p.topic.Publish(ctx, &gpubsub.Message{
		Data:       b,
		Attributes: map[string]string{"type": ev.Type, "action": string(ev.Action)},
	})
	id, err := r.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("messageId", ev.MessageID).Msg("failed to publish status event")
		return err
	}
	log.Debug().Str("pubsubMessageID", id).Str("messageId", ev.MessageID).Str("action", string(ev.Action)).Msg("published status event")
	return nil
}

// Close releases the underlying client, if one was created.
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	if p.topic != nil {
		p.topic.Stop()
	}
	return p.client.Close()
}
