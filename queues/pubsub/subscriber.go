package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"discord-server-status/metrics"
	"discord-server-status/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type Subscriber struct {
	projectID        string
	subscriptionName string
	credsFile        string
	client           *gpubsub.Client
	sub              *gpubsub.Subscription
}

func NewSubscriber(projectID, subscriptionName, credsFile string) *Subscriber {
	return &Subscriber{projectID: projectID, subscriptionName: subscriptionName, credsFile: credsFile}
}

func (s *Subscriber) Start(ctx context.Context, handler func(context.Context, *queues.SnapshotEnvelope) error) error {
	if s.client == nil {
		var (
			client *gpubsub.Client
			err    error
		)
		if s.credsFile != "" {
			log.Debug().Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Str("credsFile", s.credsFile).Msg("initializing pubsub subscriber with explicit credentials")
			client, err = gpubsub.NewClient(ctx, s.projectID, option.WithCredentialsFile(s.credsFile))
		} else {
			log.Debug().Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("initializing pubsub subscriber with default credentials")
			client, err = gpubsub.NewClient(ctx, s.projectID)
		}
		if err != nil {
			log.Error().Err(err).Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("failed to create pubsub client for subscriber")
			return err
		}
		s.client = client
		s.sub = client.Subscription(s.subscriptionName)
		log.Info().Str("subscription", s.subscriptionName).Msg("pubsub subscriber initialized")
	}
	// Only the latest snapshot matters; keep few messages outstanding
	s.sub.ReceiveSettings.MaxOutstandingMessages = 10

	// Receive blocks; it will create goroutines internally; respect ctx cancellation
	return s.sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		log.Debug().Str("messageID", m.ID).Int("size", len(m.Data)).Msg("received pubsub message")
		recvAt := time.Now()
		var env queues.SnapshotEnvelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			log.Error().Err(err).Str("messageID", m.ID).Msg("failed to unmarshal server snapshot")
			metrics.SnapshotsReceivedTotal.WithLabelValues("malformed").Inc()
			// Nack to allow retry
			m.Nack()
			return
		}
		if err := env.Validate(); err != nil {
			log.Error().Err(err).Str("messageID", m.ID).Str("server", env.ServerName).Msg("invalid server snapshot payload")
			metrics.SnapshotsReceivedTotal.WithLabelValues("invalid").Inc()
			// Ack to drop bad message (poison)
			m.Ack()
			return
		}

		if err := handler(ctx, &env); err != nil {
			log.Error().Err(err).Str("server", env.ServerName).Msg("snapshot handler failed; will retry")
			m.Nack()
			return
		}
		metrics.SnapshotsReceivedTotal.WithLabelValues("accepted").Inc()
		log.Debug().Str("server", env.ServerName).Int("players", env.PlayerCount).Dur("latency", time.Since(recvAt)).Msg("snapshot stored; acking message")
		m.Ack()
	})
}
