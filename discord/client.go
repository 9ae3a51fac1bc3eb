package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"discord-server-status/presence"
	"discord-server-status/reconciler"
	"discord-server-status/status"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Client adapts a discordgo session to the reconciler and presence
// contracts.
type Client struct {
	session *discordgo.Session
}

func New(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord: session ready")
	})
	return &Client{session: s}, nil
}

// Open connects to the gateway.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

// Channel resolves a channel from the state cache, falling back to the API.
func (c *Client) Channel(ctx context.Context, channelID string) (reconciler.Channel, error) {
	if ch, err := c.session.State.Channel(channelID); err == nil {
		return &channel{session: c.session, id: ch.ID}, nil
	}
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, channelError(channelID, err)
	}
	return &channel{session: c.session, id: ch.ID}, nil
}

// SetActivity replaces the bot presence with a single activity.
func (c *Client) SetActivity(ctx context.Context, a presence.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{
			Name:  a.Text,
			State: a.Text,
			Type:  discordgo.ActivityType(a.Kind),
		}},
	})
}

// OnCommand calls handler for every message written by a non-bot user.
// The returned func removes the handler.
func (c *Client) OnCommand(handler func(ctx context.Context, channelID, content string)) func() {
	return c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		handler(context.Background(), m.ChannelID, m.Content)
	})
}

type channel struct {
	session *discordgo.Session
	id      string
}

func (ch *channel) ID() string {
	return ch.id
}

func (ch *channel) Fetch(ctx context.Context, messageID string) error {
	_, err := ch.session.ChannelMessage(ch.id, messageID, discordgo.WithContext(ctx))
	return err
}

func (ch *channel) Edit(ctx context.Context, messageID string, p status.Payload) error {
	_, err := ch.session.ChannelMessageEditEmbeds(ch.id, messageID, []*discordgo.MessageEmbed{Embed(p)}, discordgo.WithContext(ctx))
	return err
}

func (ch *channel) Send(ctx context.Context, p status.Payload) (string, error) {
	m, err := ch.session.ChannelMessageSendEmbeds(ch.id, []*discordgo.MessageEmbed{Embed(p)}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// channelError maps "unknown channel" and access errors onto
// reconciler.ErrChannelNotFound.
func channelError(channelID string, err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		unknown := rest.Message != nil && (rest.Message.Code == discordgo.ErrCodeUnknownChannel || rest.Message.Code == discordgo.ErrCodeMissingAccess)
		missing := rest.Response != nil && (rest.Response.StatusCode == http.StatusNotFound || rest.Response.StatusCode == http.StatusForbidden)
		if unknown || missing {
			return fmt.Errorf("discord: channel %s: %w", channelID, reconciler.ErrChannelNotFound)
		}
	}
	return fmt.Errorf("discord: channel %s: %w", channelID, err)
}
