package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/onnwee/hatewatch/backend/watcher"
)

// MessageSender is the slice of *discordgo.Session the announcer needs.
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer delivers watcher announcements to a fixed channel. It satisfies
// watcher.Sink.
type Announcer struct {
	Sender    MessageSender
	ChannelID string
}

func NewAnnouncer(s MessageSender, channelID string) *Announcer {
	return &Announcer{Sender: s, ChannelID: channelID}
}

// Announce sends one formatted battle message.
func (a *Announcer) Announce(_ context.Context, ann watcher.Announcement) error {
	if _, err := a.Sender.ChannelMessageSend(a.ChannelID, FormatAnnouncement(ann)); err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}
	return nil
}

// FormatAnnouncement renders one battle line. A mention prefix appears only
// when the gate permitted a ping and the player has a linked account; a zero
// trophy delta is omitted like a missing one.
func FormatAnnouncement(a watcher.Announcement) string {
	msg := fmt.Sprintf("%s played a **%s** match! **%s** *%s*", a.Name, a.Mode, a.Outcome, a.Score)
	if a.TrophyChange != nil && *a.TrophyChange != 0 {
		msg += fmt.Sprintf(" | %d 🏆", *a.TrophyChange)
	}
	if a.Notify && a.DiscordID != "" {
		msg = fmt.Sprintf("<@%s> %s", a.DiscordID, msg)
	}
	if a.TiltMessage != "" {
		msg += "\n" + a.TiltMessage
	}
	return msg
}
