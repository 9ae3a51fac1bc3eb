package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// FooterText is the attribution shown under every status embed.
	FooterText = "Powered by discord-server-status"

	layerImageBaseURL = "https://raw.githubusercontent.com/Squad-Wiki/squad-wiki-pipeline-map-data/master/completed_output/_Current%20Version/images/"

	unknownLayer = "Unknown"
	toBeVoted    = "To be voted"
	codeFence    = "```"
)

// MapQuerier asks the game server for the active layer when telemetry has
// not reported one yet.
type MapQuerier interface {
	CurrentMap(ctx context.Context) (string, error)
}

// OccupancyRatio is PlayerCount over total slots, clamped to [0,1].
// Zero capacity yields 0.
func OccupancyRatio(s Snapshot) float64 {
	total := s.PublicSlots + s.ReserveSlots
	if total <= 0 {
		return 0
	}
	return clamp01(float64(s.PlayerCount) / float64(total))
}

// PlayerText formats the players field, e.g. "10 (+3) / 20 (+5)".
func PlayerText(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", s.PlayerCount)
	if queued := s.PublicQueue + s.ReserveQueue; queued > 0 {
		fmt.Fprintf(&b, " (+%d)", queued)
	}
	fmt.Fprintf(&b, " / %d", s.PublicSlots)
	if s.ReserveSlots > 0 {
		fmt.Fprintf(&b, " (+%d)", s.ReserveSlots)
	}
	return b.String()
}

// PresenceText is the short summary used for the bot's custom status.
func PresenceText(s Snapshot) string {
	name := unknownLayer
	if s.CurrentLayer != nil && s.CurrentLayer.Name != "" {
		name = s.CurrentLayer.Name
	}
	return fmt.Sprintf("(%d/%d) %s", s.PlayerCount, s.PublicSlots, name)
}

// LayerImageURL returns the map image for a layer id.
func LayerImageURL(layerID string) string {
	return layerImageBaseURL + layerID + ".jpg"
}

// Render builds the status payload for a snapshot. maps is consulted only
// when the snapshot carries no current layer; it may be nil.
func Render(ctx context.Context, s Snapshot, maps MapQuerier, now time.Time) Payload {
	p := Payload{
		Title: s.ServerName,
		Fields: []Field{
			{Name: "Players", Value: PlayerText(s)},
			{Name: "Current Layer", Value: fenced(currentLayerName(ctx, s, maps)), Inline: true},
			{Name: "Next Layer", Value: fenced(nextLayerName(s)), Inline: true},
		},
		Color:     ColorAt(OccupancyRatio(s)),
		Footer:    FooterText,
		Timestamp: now,
	}
	if s.CurrentLayer != nil && s.CurrentLayer.LayerID != "" {
		url := LayerImageURL(s.CurrentLayer.LayerID)
		p.ImageURL = &url
	}
	return p
}

func currentLayerName(ctx context.Context, s Snapshot, maps MapQuerier) string {
	if s.CurrentLayer != nil && s.CurrentLayer.Name != "" {
		return s.CurrentLayer.Name
	}
	if maps == nil {
		return unknownLayer
	}
	name, err := maps.CurrentMap(ctx)
	if err != nil {
		log.Warn().Err(err).Str("server", s.ServerName).Msg("status: current map query failed")
		return unknownLayer
	}
	if name = strings.TrimSpace(name); name == "" {
		return unknownLayer
	}
	return name
}

func nextLayerName(s Snapshot) string {
	switch {
	case s.NextLayer != nil && s.NextLayer.Name != "":
		return s.NextLayer.Name
	case s.NextLayerToBeVoted:
		return toBeVoted
	default:
		return unknownLayer
	}
}

func fenced(v string) string {
	return codeFence + v + codeFence
}
