// Package notifier delivers digest text to its recipient over Discord.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// MaxChunkLen keeps chunks under Discord's 2000-character message limit
// with headroom to spare.
const MaxChunkLen = 1900

// Notifier delivers a block of text to a recipient, chunked to the
// platform's message length limit.
type Notifier interface {
	Send(ctx context.Context, recipientID, message string) error
}

// session is the slice of discordgo.Session the notifier needs.
type session interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// DiscordNotifier sends digests as Discord direct messages.
type DiscordNotifier struct {
	token  string
	logger *logrus.Logger

	// newSession is swappable in tests.
	newSession func(token string) (session, error)
}

// NewDiscordNotifier creates a notifier authenticating with the given bot token.
func NewDiscordNotifier(token string, logger *logrus.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		token:  token,
		logger: logger,
		newSession: func(token string) (session, error) {
			return discordgo.New("Bot " + token)
		},
	}
}

// Send opens a DM channel to the recipient and delivers the message chunks
// in order. The session is torn down whether delivery succeeds or fails.
func (n *DiscordNotifier) Send(ctx context.Context, recipientID, message string) error {
	s, err := n.newSession(n.token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	defer s.Close()

	channel, err := s.UserChannelCreate(recipientID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	for _, chunk := range SplitMessage(message, MaxChunkLen) {
		if _, err := s.ChannelMessageSend(channel.ID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send message chunk: %w", err)
		}
		n.logger.Infof("Sent message chunk (%d chars)", utf8.RuneCountInString(chunk))
	}
	return nil
}

// SplitMessage splits message into chunks of at most max characters,
// breaking on line boundaries and preserving line order. Each chunk is
// trimmed of trailing whitespace.
func SplitMessage(message string, max int) []string {
	if utf8.RuneCountInString(message) <= max {
		return []string{message}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), " \t\n"))
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.Split(message, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen+1 > max {
			flush()
		}
		current.WriteString(line)
		current.WriteString("\n")
		currentLen += lineLen + 1
	}
	flush()

	return chunks
}
