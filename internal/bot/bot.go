// Package bot answers chat commands and drives the long-polling loop.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
	"github.com/tartampluch/birthday-bot/internal/telegram"
)

// Querier looks up the nearest birthdays.
type Querier interface {
	Upcoming(ctx context.Context, limit int) ([]engine.Upcoming, error)
}

// Replier sends chat messages.
type Replier interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Updater fetches pending updates.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// Formatter renders command replies.
type Formatter interface {
	Upcoming(list []engine.Upcoming) string
	Help() string
	QueryFailed() string
}

// Bot routes chat commands to their handlers.
type Bot struct {
	Querier   Querier
	Replier   Replier
	Updater   Updater // Only needed by Poll.
	Formatter Formatter
	Limit     int

	// Username is the bot's own handle. Commands addressed to another bot
	// ("/help@other_bot") are ignored. Empty accepts any suffix.
	Username string

	// PollTimeout and Backoff default to config.PollTimeout and config.PollErrorBackoff.
	PollTimeout time.Duration
	Backoff     time.Duration
}

// HandleUpdate answers a single update. Non-command messages are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) error {
	if u.Message == nil {
		return nil
	}

	cmd := commandOf(u.Message.Text, b.Username)
	if cmd == "" {
		return nil
	}

	chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
	logger := slog.With(
		config.LogKeyComponent, config.CompBot,
		config.LogKeyCommand, cmd,
		config.LogKeyChatID, chatID,
	)

	var reply string
	switch cmd {
	case config.CmdBirthdays:
		reply = b.upcoming(ctx, logger)
	case config.CmdStart, config.CmdHelp:
		reply = b.Formatter.Help()
	default:
		return nil
	}

	logger.Info(config.MsgCommand)
	if err := b.Replier.SendMessage(ctx, chatID, reply); err != nil {
		return fmt.Errorf("%s: %s: %w", config.ErrUpdateHandle, cmd, err)
	}
	return nil
}

func (b *Bot) upcoming(ctx context.Context, logger *slog.Logger) string {
	limit := b.Limit
	if limit <= 0 {
		limit = engine.DefaultTopN
	}

	list, err := b.Querier.Upcoming(ctx, limit)
	if err != nil {
		logger.Error(config.ErrRosterFetch, config.LogKeyError, err)
		return b.Formatter.QueryFailed()
	}
	return b.Formatter.Upcoming(list)
}

// Poll long-polls for updates until ctx is done. Handler and transport
// errors are logged and never stop the loop.
func (b *Bot) Poll(ctx context.Context) error {
	timeout := b.PollTimeout
	if timeout <= 0 {
		timeout = config.PollTimeout
	}
	backoff := b.Backoff
	if backoff <= 0 {
		backoff = config.PollErrorBackoff
	}

	logger := slog.With(config.LogKeyComponent, config.CompBot)
	logger.Info(config.MsgPollingStart)
	defer logger.Info(config.MsgPollingStop)

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.Updater.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn(config.ErrPollFailed, config.LogKeyError, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if err := b.HandleUpdate(ctx, u); err != nil {
				logger.Error(config.ErrUpdateHandle, config.LogKeyError, err)
			}
		}
	}
}

// commandOf extracts "/cmd" from "/cmd@botname args". It returns "" when
// botname is set and is not username.
func commandOf(text, username string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, target, addressed := strings.Cut(fields[0], "@")
	if addressed && username != "" && !strings.EqualFold(target, username) {
		return ""
	}
	return strings.ToLower(cmd)
}
