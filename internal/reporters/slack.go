package reporters

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/macdems/buildbot/internal/buildsets"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts completion summaries to one channel.
type Slack struct {
	client  slackClient
	channel string
}

// SlackOpts holds parameters for creating a Slack reporter.
type SlackOpts struct {
	Token   string // xoxb-... bot token
	Channel string // channel id to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack reporter.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("reporters: slack: token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("reporters: slack: channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.Token)
	}
	return &Slack{client: client, channel: opts.Channel}, nil
}

// BuildsetComplete posts the completion summary.
func (s *Slack) BuildsetComplete(ctx context.Context, m *buildsets.BuildSetModel) error {
	_, _, err := s.client.PostMessage(s.channel, slackapi.MsgOptionText(summary(m), false))
	if err != nil {
		return fmt.Errorf("reporters: slack: post: %w", err)
	}
	return nil
}
