package main

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordNotifier posts a short digest embed to a channel when a run
// completes. Notification failures are logged and otherwise ignored; the
// run result is already persisted by the time this fires.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordNotifier opens a Discord session for the given bot token
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %v", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %v", err)
	}
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}, nil
}

// Close shuts down the Discord session
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}

// NotifyCompleted posts the digest for a completed run
func (n *DiscordNotifier) NotifyCompleted(run *AnalysisRun) {
	if run == nil {
		return
	}

	citations := 0
	degraded := 0
	for _, fc := range run.FactChecks {
		citations += len(fc.Articles)
		if fc.Error != "" {
			degraded++
		}
	}

	score := "n/a"
	if run.Sentiment != nil {
		score = fmt.Sprintf("%.2f", run.Sentiment.Score)
	}

	embed := &discordgo.MessageEmbed{
		Title:       run.Topic,
		Description: truncate(run.Summary, 500),
		Timestamp:   time.Now().Format(time.RFC3339),
		Color:       0x7289DA,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Authenticity score", Value: score, Inline: true},
			{Name: "Claims checked", Value: fmt.Sprintf("%d", len(run.Claims)), Inline: true},
			{Name: "Citations gathered", Value: fmt.Sprintf("%d", citations), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Analysis %s", run.AnalysisID),
		},
	}
	if degraded > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Unverifiable claims",
			Value:  fmt.Sprintf("%d", degraded),
			Inline: true,
		})
	}

	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		Logger().Warning("Failed to post digest for run %s: %v", run.AnalysisID, err)
	}
}
