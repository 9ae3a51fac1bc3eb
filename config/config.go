package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"discord-server-status/serverstatus"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	SourceAgones = "agones"
	SourcePubSub = "pubsub"
)

type Config struct {
	DiscordToken     string `env:"DISCORD_TOKEN"`
	ChannelID        string `env:"STATUS_CHANNEL_ID"`
	Command          string `env:"STATUS_COMMAND" envDefault:"!status"`
	UpdateIntervalMS int64  `env:"STATUS_UPDATE_INTERVAL_MS" envDefault:"60000"`
	SetBotStatus     bool   `env:"STATUS_SET_BOT_STATUS" envDefault:"true"`

	Source          string `env:"STATUS_SOURCE" envDefault:"agones"`
	GameServerName  string `env:"STATUS_GAMESERVER_NAME"`
	TargetNamespace string `env:"TARGET_NAMESPACE" envDefault:"default"`
	Subscription    string `env:"STATUS_SNAPSHOT_SUBSCRIPTION"`
	EventsTopic     string `env:"STATUS_EVENTS_TOPIC"`

	ProjectIDOverride string `env:"STATUS_PUBSUB_PROJECT_ID"`
	GSACredentials    string `env:"STATUS_GSA_CREDENTIALS"`
	GoogleProjectID   string
	CredentialsFile   string

	MetricsPort int    `env:"STATUS_METRICS_PORT" envDefault:"8080"`
	LogLevel    string `env:"STATUS_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment. It only fails on malformed values; use
// Validate for missing ones.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.DiscordToken = strings.TrimSpace(cfg.DiscordToken)
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)
	cfg.Command = strings.TrimSpace(cfg.Command)
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.GameServerName = strings.TrimSpace(cfg.GameServerName)
	cfg.TargetNamespace = strings.TrimSpace(cfg.TargetNamespace)
	cfg.Subscription = strings.TrimSpace(cfg.Subscription)
	cfg.EventsTopic = strings.TrimSpace(cfg.EventsTopic)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	cfg.CredentialsFile = strings.TrimSpace(firstNonEmpty(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), cfg.GSACredentials))

	if cfg.needsPubSub() {
		cfg.GoogleProjectID = getGoogleProjectID(cfg.CredentialsFile, cfg.ProjectIDOverride)
		if cfg.GoogleProjectID == "" {
			log.Warn().Msg("Google project ID not resolved; set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PROJECT_ID or STATUS_PUBSUB_PROJECT_ID")
		}
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("missing DISCORD_TOKEN"))
	}
	if c.ChannelID == "" {
		errs = append(errs, errors.New("missing STATUS_CHANNEL_ID"))
	}
	if c.UpdateIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("STATUS_UPDATE_INTERVAL_MS must be > 0, got %d", c.UpdateIntervalMS))
	}
	switch c.Source {
	case SourceAgones:
		if c.GameServerName == "" {
			errs = append(errs, errors.New("missing STATUS_GAMESERVER_NAME for agones source"))
		}
	case SourcePubSub:
		if c.Subscription == "" {
			errs = append(errs, errors.New("missing STATUS_SNAPSHOT_SUBSCRIPTION for pubsub source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STATUS_SOURCE %q; want %s or %s", c.Source, SourceAgones, SourcePubSub))
	}
	if c.needsPubSub() && c.GoogleProjectID == "" {
		errs = append(errs, errors.New("missing Google project id; set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PROJECT_ID or STATUS_PUBSUB_PROJECT_ID"))
	}
	return errors.Join(errs...)
}

func (c *Config) needsPubSub() bool {
	return c.Source == SourcePubSub || c.EventsTopic != ""
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMS) * time.Millisecond
}

// StatusOptions maps the plugin settings onto the feature options.
func (c *Config) StatusOptions() serverstatus.Options {
	return serverstatus.Options{
		Command:        c.Command,
		UpdateInterval: c.UpdateInterval(),
		SetBotStatus:   c.SetBotStatus,
		ChannelID:      c.ChannelID,
	}
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.MetricsPort))
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"channelId":            c.ChannelID,
		"command":              c.Command,
		"updateIntervalMs":     c.UpdateIntervalMS,
		"setBotStatus":         c.SetBotStatus,
		"source":               c.Source,
		"gameServer":           c.GameServerName,
		"targetNamespace":      c.TargetNamespace,
		"snapshotSubscription": c.Subscription,
		"eventsTopic":          c.EventsTopic,
		"projectID":            c.GoogleProjectID,
		"metricsPort":          c.MetricsPort,
		"logLevel":             c.LogLevel,
		"tokenProvided":        c.DiscordToken != "",
		"credentialsProvided":  c.CredentialsFile != "",
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func projectIDFromCredentials(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	var x struct {
		ProjectID string `json:"project_id"`
	}
	// unparseable files yield an empty id
	_ = json.Unmarshal(b, &x)
	return x.ProjectID, nil
}

func getGoogleProjectID(credsFile string, explicit string) string {
	// 1) Prefer GOOGLE_APPLICATION_CREDENTIALS if set
	if p := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); p != "" {
		log.Info().Str("credsFile", p).Msg("GOOGLE_APPLICATION_CREDENTIALS is set; extracting project_id from credentials file")
		if pid, err := projectIDFromCredentials(p); err == nil && pid != "" {
			return strings.TrimSpace(pid)
		}
		log.Warn().Str("credsFile", p).Msg("project_id not found in credentials file or unreadable")
	}

	// 2) Explicit override
	if explicit := strings.TrimSpace(explicit); explicit != "" {
		log.Info().Str("projectID", explicit).Msg("using STATUS_PUBSUB_PROJECT_ID for Google project")
		return explicit
	}

	// 3) External k8s override
	if v := strings.TrimSpace(os.Getenv("GOOGLE_PROJECT_ID")); v != "" {
		log.Info().Str("projectID", v).Msg("using GOOGLE_PROJECT_ID from environment")
		return v
	}

	// 4) Common Google envs
	if v := firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("GCLOUD_PROJECT"), os.Getenv("GCP_PROJECT")); strings.TrimSpace(v) != "" {
		v = strings.TrimSpace(v)
		log.Info().Str("projectID", v).Msg("using Google project from common environment variables")
		return v
	}

	// 5) Fallback to STATUS_GSA_CREDENTIALS
	if p := strings.TrimSpace(credsFile); p != "" {
		if pid, err := projectIDFromCredentials(p); err == nil && pid != "" {
			log.Info().Str("credsFile", p).Msg("using project_id from provided credentials file")
			return strings.TrimSpace(pid)
		}
	}
	return ""
}
