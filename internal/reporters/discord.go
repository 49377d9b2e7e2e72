package reporters

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/macdems/buildbot/internal/buildsets"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts completion summaries to one channel.
type Discord struct {
	sess    session
	channel string
}

// DiscordOpts holds parameters for creating a Discord reporter.
type DiscordOpts struct {
	Token   string // bot token
	Channel string // channel id to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// NewDiscord creates a Discord reporter.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.Session == nil && opts.Token == "" {
		return nil, fmt.Errorf("reporters: discord: token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("reporters: discord: channel is required")
	}
	sess := opts.Session
	if sess == nil {
		s, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("reporters: discord: %w", err)
		}
		sess = s
	}
	return &Discord{sess: sess, channel: opts.Channel}, nil
}

// BuildsetComplete posts the completion summary.
func (d *Discord) BuildsetComplete(ctx context.Context, m *buildsets.BuildSetModel) error {
	if _, err := d.sess.ChannelMessageSend(d.channel, summary(m)); err != nil {
		return fmt.Errorf("reporters: discord: send: %w", err)
	}
	return nil
}
