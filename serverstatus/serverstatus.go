package serverstatus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"discord-server-status/presence"
	"discord-server-status/queues"
	"discord-server-status/reconciler"
	"discord-server-status/scheduler"
	"discord-server-status/status"
	"discord-server-status/telemetry"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCommand        = "!status"
	DefaultUpdateInterval = 60 * time.Second

	JobMessages = "messages"
	JobPresence = "presence"
)

var (
	ErrMissingChannelID = errors.New("serverstatus: channelId is required")
	ErrInvalidInterval  = errors.New("serverstatus: updateInterval must be > 0")
	ErrAlreadyMounted   = errors.New("serverstatus: already mounted")
)

// Options are the recognized plugin options.
type Options struct {
	Command        string
	UpdateInterval time.Duration
	SetBotStatus   bool
	ChannelID      string
}

func DefaultOptions() Options {
	return Options{
		Command:        DefaultCommand,
		UpdateInterval: DefaultUpdateInterval,
		SetBotStatus:   true,
	}
}

func (o Options) validate() error {
	if strings.TrimSpace(o.ChannelID) == "" {
		return ErrMissingChannelID
	}
	if o.UpdateInterval <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidInterval, o.UpdateInterval)
	}
	return nil
}

// Chat is everything the feature needs from the chat platform.
type Chat interface {
	reconciler.Client
	presence.Setter
}

type Option func(*ServerStatus)

// WithClock overrides the render timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *ServerStatus) { s.now = now }
}

// WithPublisher announces newly posted status messages.
func WithPublisher(p queues.Publisher) Option {
	return func(s *ServerStatus) { s.publisher = p }
}

// ServerStatus keeps a live server status board in one channel and,
// optionally, in the bot presence.
type ServerStatus struct {
	source    telemetry.Source
	chat      Chat
	opts      Options
	publisher queues.Publisher
	now       func() time.Time

	mu         sync.Mutex
	reconciler *reconciler.Reconciler
	presence   *presence.Updater
	sched      *scheduler.Scheduler
}

func New(source telemetry.Source, chat Chat, opts Options, options ...Option) *ServerStatus {
	s := &ServerStatus{source: source, chat: chat, opts: opts, now: time.Now}
	for _, o := range options {
		o(s)
	}
	s.presence = presence.New(chat, opts.SetBotStatus)
	return s
}

// Mount validates the options and starts the message and presence jobs.
// The target message is forgotten on every mount.
func (s *ServerStatus) Mount(ctx context.Context) error {
	if err := s.opts.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		return ErrAlreadyMounted
	}

	s.reconciler = reconciler.New(s.chat, s.opts.ChannelID, s.publisher)
	sched, err := scheduler.New(
		scheduler.Job{Name: JobMessages, Interval: s.opts.UpdateInterval, Run: s.UpdateMessages},
		scheduler.Job{Name: JobPresence, Interval: s.opts.UpdateInterval, Run: s.UpdateStatus},
	)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	s.sched = sched
	log.Info().Str("channelId", s.opts.ChannelID).Dur("interval", s.opts.UpdateInterval).Bool("setBotStatus", s.opts.SetBotStatus).Msg("serverstatus: mounted")
	return nil
}

// Unmount stops both jobs. Calling it when not mounted is a no-op.
func (s *ServerStatus) Unmount(ctx context.Context) error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	err := sched.Stop(ctx)
	log.Info().Str("channelId", s.opts.ChannelID).Msg("serverstatus: unmounted")
	return err
}

func (s *ServerStatus) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched != nil
}

// GenerateMessage renders the current server snapshot.
func (s *ServerStatus) GenerateMessage(ctx context.Context) (status.Payload, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return status.Payload{}, fmt.Errorf("serverstatus: read snapshot: %w", err)
	}
	return status.Render(ctx, snap, s.source, s.now()), nil
}

// UpdateMessages is the message job tick.
func (s *ServerStatus) UpdateMessages(ctx context.Context) error {
	s.mu.Lock()
	r := s.reconciler
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Reconcile(ctx, reconciler.PayloadFunc(s.GenerateMessage))
}

// UpdateStatus is the presence job tick.
func (s *ServerStatus) UpdateStatus(ctx context.Context) error {
	if !s.presence.Enabled() {
		return nil
	}
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("serverstatus: read snapshot: %w", err)
	}
	return s.presence.Update(ctx, snap)
}

// HandleCommand replies with a one-off status message when content is the
// configured command. It reports whether the command matched.
func (s *ServerStatus) HandleCommand(ctx context.Context, channelID, content string) (bool, error) {
	if s.opts.Command == "" || strings.TrimSpace(content) != s.opts.Command {
		return false, nil
	}
	ch, err := s.chat.Channel(ctx, channelID)
	if err != nil {
		return true, fmt.Errorf("serverstatus: resolve command channel %s: %w", channelID, err)
	}
	p, err := s.GenerateMessage(ctx)
	if err != nil {
		return true, err
	}
	id, err := ch.Send(ctx, p)
	if err != nil {
		return true, fmt.Errorf("serverstatus: reply to command: %w", err)
	}
	log.Info().Str("channelId", channelID).Str("messageId", id).Msg("serverstatus: replied to status command")
	return true, nil
}
