package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/birthday-bot/internal/config"
)

// RosterSource returns the raw roster table, header row first.
type RosterSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Dispatcher delivers a message to a chat.
type Dispatcher interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// ErrPartialDispatch marks a daily pass that ran but failed to deliver some
// of its messages.
var ErrPartialDispatch = errors.New(config.ErrDailyCheckPartial)

// Notifier binds the pure birthday logic to its collaborators.
// All fields are set once at start-up.
type Notifier struct {
	Clock      Clock
	Location   *time.Location // Timezone that defines "today".
	Source     RosterSource
	Dispatcher Dispatcher
	ChatID     string
	Render     RenderFunc
}

// Roster fetches and parses the roster. Source errors are returned as is, wrapped.
func (n *Notifier) Roster(ctx context.Context) ([]BirthdayRecord, error) {
	rows, err := n.Source.Rows(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrRosterFetch, err)
	}

	records := ParseRoster(rows)
	slog.Debug(config.MsgRosterLoaded,
		config.LogKeyComponent, config.CompNotifier,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, len(rows)),
			slog.Int(config.LogKeyFound, len(records)),
		),
	)
	return records, nil
}

// Today returns the reference date for the current invocation.
func (n *Notifier) Today() time.Time {
	return Today(n.Clock, n.Location)
}

// RunDailyCheck runs the notification pass for today and dispatches each
// message in roster order. A failed dispatch does not stop the pass: it is
// logged, recorded on its Notification, and all failures are returned joined
// under ErrPartialDispatch. Any other error means no message was sent.
func (n *Notifier) RunDailyCheck(ctx context.Context) ([]Notification, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompNotifier)
	log.InfoContext(ctx, config.MsgDailyStarted)

	roster, err := n.Roster(ctx)
	if err != nil {
		return nil, err
	}

	notifications := DailyCheck(roster, n.Today(), n.Render)

	var errs []error
	for i := range notifications {
		nt := &notifications[i]
		if err := n.Dispatcher.SendMessage(ctx, n.ChatID, nt.Message); err != nil {
			nt.Err = fmt.Errorf("%s: %s: %w", config.ErrDispatch, nt.Record.Name, err)
			errs = append(errs, nt.Err)
			log.ErrorContext(ctx, config.ErrDispatch,
				config.LogKeyName, nt.Record.Name,
				config.LogKeyTier, nt.Occurrence.Tier.String(),
				config.LogKeyError, err)
			continue
		}
		log.InfoContext(ctx, config.MsgNotifySent,
			config.LogKeyName, nt.Record.Name,
			config.LogKeyTier, nt.Occurrence.Tier.String(),
			config.LogKeyDays, nt.Occurrence.DaysUntil)
	}

	log.InfoContext(ctx, config.MsgDailyFinished,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyFound, len(roster)),
			slog.Int(config.LogKeySent, len(notifications)-len(errs)),
			slog.Int(config.LogKeyFailed, len(errs)),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)

	if len(errs) > 0 {
		return notifications, fmt.Errorf("%w: %w", ErrPartialDispatch, errors.Join(errs...))
	}
	return notifications, nil
}

// Upcoming returns the limit closest birthdays from today.
func (n *Notifier) Upcoming(ctx context.Context, limit int) ([]Upcoming, error) {
	roster, err := n.Roster(ctx)
	if err != nil {
		return nil, err
	}
	return TopUpcoming(roster, n.Today(), limit), nil
}
