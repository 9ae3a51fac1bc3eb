package discord

import (
	"time"

	"discord-server-status/status"

	"github.com/bwmarrin/discordgo"
)

// Embed converts a rendered payload into a Discord embed.
func Embed(p status.Payload) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:  p.Title,
		Color:  p.Color.Int(),
		Fields: make([]*discordgo.MessageEmbedField, 0, len(p.Fields)),
	}
	for _, f := range p.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if p.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: p.Footer}
	}
	if !p.Timestamp.IsZero() {
		e.Timestamp = p.Timestamp.UTC().Format(time.RFC3339)
	}
	if p.ImageURL != nil {
		e.Image = &discordgo.MessageEmbedImage{URL: *p.ImageURL}
	}
	return e
}
