package reconciler

import (
	"context"
	"errors"

	"discord-server-status/status"
)

// ErrChannelNotFound is returned by Client.Channel when the configured
// channel does not exist or is not visible to the bot.
var ErrChannelNotFound = errors.New("channel not found")

// Client resolves chat channels.
type Client interface {
	Channel(ctx context.Context, channelID string) (Channel, error)
}

// Channel is the message transport of one resolved channel.
type Channel interface {
	ID() string
	// Fetch fails when the message no longer exists.
	Fetch(ctx context.Context, messageID string) error
	Edit(ctx context.Context, messageID string, p status.Payload) error
	Send(ctx context.Context, p status.Payload) (string, error)
}

// PayloadSource produces the payload to apply on each reconcile.
type PayloadSource interface {
	Payload(ctx context.Context) (status.Payload, error)
}

// PayloadFunc adapts a function to PayloadSource.
type PayloadFunc func(ctx context.Context) (status.Payload, error)

func (f PayloadFunc) Payload(ctx context.Context) (status.Payload, error) {
	return f(ctx)
}
